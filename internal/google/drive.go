package google

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"cabinetquote/internal/pkg/quotetext"
)

const folderMimeType = "application/vnd.google-apps.folder"

var (
	ErrFolderNotFound = errors.New("drive folder not found")
	ErrNoQuoteFiles   = errors.New("drive folder has no quote files")
)

// DriveFile is a downloaded quote source.
type DriveFile struct {
	ID      string
	Name    string
	Content []byte
}

// DriveSource fetches every quote file from one named Drive folder.
type DriveSource struct {
	svc         *drive.Service
	folder      string
	concurrency int
}

func NewDriveSource(ctx context.Context, ts oauth2.TokenSource, folder string, concurrency int, opts ...option.ClientOption) (*DriveSource, error) {
	if ts != nil {
		opts = append([]option.ClientOption{option.WithTokenSource(ts)}, opts...)
	}
	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create drive service failed: %w", err)
	}
	if concurrency <= 0 {
		concurrency = 4
	}
	return &DriveSource{svc: svc, folder: folder, concurrency: concurrency}, nil
}

// Fetch downloads all quote files in the folder, ordered by name. Any failed
// download fails the whole fetch.
func (s *DriveSource) Fetch(ctx context.Context) ([]DriveFile, error) {
	folderID, err := s.FindFolder(ctx)
	if err != nil {
		return nil, err
	}
	files, err := s.ListFiles(ctx, folderID)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoQuoteFiles, s.folder)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i := range files {
		g.Go(func() error {
			content, err := s.Download(gctx, files[i].ID)
			if err != nil {
				return fmt.Errorf("download %s failed: %w", files[i].Name, err)
			}
			files[i].Content = content
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return files, nil
}

func (s *DriveSource) FindFolder(ctx context.Context) (string, error) {
	q := fmt.Sprintf("mimeType='%s' and name='%s' and trashed=false", folderMimeType, escapeQuery(s.folder))
	resp, err := s.svc.Files.List().
		Q(q).
		Spaces("drive").
		Fields("files(id, name)").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("drive find folder failed: %w", err)
	}
	if len(resp.Files) == 0 {
		return "", fmt.Errorf("%w: %q", ErrFolderNotFound, s.folder)
	}
	return resp.Files[0].Id, nil
}

// ListFiles pages through the folder's .eml and .pdf files.
func (s *DriveSource) ListFiles(ctx context.Context, folderID string) ([]DriveFile, error) {
	q := fmt.Sprintf("'%s' in parents and trashed=false and (name contains '.eml' or name contains '.pdf')", escapeQuery(folderID))
	var out []DriveFile
	pageToken := ""
	for {
		call := s.svc.Files.List().
			Q(q).
			Fields("nextPageToken, files(id, name)").
			OrderBy("name").
			PageSize(100).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		resp, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("drive list files failed: %w", err)
		}
		for _, f := range resp.Files {
			if quotetext.IsSupported(f.Name) {
				out = append(out, DriveFile{ID: f.Id, Name: f.Name})
			}
		}
		if resp.NextPageToken == "" {
			return out, nil
		}
		pageToken = resp.NextPageToken
	}
}

func (s *DriveSource) Download(ctx context.Context, fileID string) ([]byte, error) {
	resp, err := s.svc.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

func escapeQuery(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}
