package service

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/stemsi/abroad-backend/internal/config"
	"github.com/stemsi/abroad-backend/internal/model"
)

// Sentinel errors for media uploads.
var (
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrFileTooLarge        = errors.New("file too large")
)

// Allowed document and image MIME types with the extension stored files get.
var allowedMIMETypes = map[string]string{
	"application/pdf": ".pdf",
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/webp":      ".webp",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": ".docx",
	"application/msword": ".doc",
}

// MediaService handles file upload operations.
type MediaService struct {
	cfg *config.Config
}

// NewMediaService creates a new MediaService.
func NewMediaService(cfg *config.Config) *MediaService {
	return &MediaService{cfg: cfg}
}

// SaveUploads stores every file or none of them. The content type is sniffed
// from the bytes; the client's Content-Type header is ignored.
func (s *MediaService) SaveUploads(headers []*multipart.FileHeader) ([]model.StoredFile, error) {
	stored := make([]model.StoredFile, 0, len(headers))
	for _, h := range headers {
		f, err := s.saveOne(h)
		if err != nil {
			s.discard(stored)
			return nil, err
		}
		stored = append(stored, f)
	}
	return stored, nil
}

func (s *MediaService) saveOne(header *multipart.FileHeader) (model.StoredFile, error) {
	if header.Size > s.cfg.MaxUploadBytes {
		return model.StoredFile{}, fmt.Errorf("%w: %d bytes (max: %d)", ErrFileTooLarge, header.Size, s.cfg.MaxUploadBytes)
	}

	file, err := header.Open()
	if err != nil {
		return model.StoredFile{}, fmt.Errorf("open upload: %w", err)
	}
	defer file.Close()

	mtype, err := mimetype.DetectReader(file)
	if err != nil {
		return model.StoredFile{}, fmt.Errorf("detect type: %w", err)
	}
	ext, ok := allowedMIMETypes[baseType(mtype.String())]
	if !ok {
		return model.StoredFile{}, fmt.Errorf("%w: %s (allowed: %s)",
			ErrUnsupportedFileType, mtype.String(), strings.Join(allowedTypes(), ", "))
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return model.StoredFile{}, fmt.Errorf("rewind upload: %w", err)
	}

	if err := os.MkdirAll(s.cfg.UploadDir, 0o755); err != nil {
		return model.StoredFile{}, fmt.Errorf("create upload dir: %w", err)
	}

	filename := uuid.New().String() + ext
	dst, err := os.Create(filepath.Join(s.cfg.UploadDir, filename))
	if err != nil {
		return model.StoredFile{}, fmt.Errorf("create file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		return model.StoredFile{}, fmt.Errorf("write file: %w", err)
	}

	return model.StoredFile{
		Filename:     filename,
		OriginalName: filepath.Base(header.Filename),
		URL:          strings.TrimRight(s.cfg.PublicBaseURL, "/") + "/uploads/" + filename,
	}, nil
}

func (s *MediaService) discard(files []model.StoredFile) {
	for _, f := range files {
		_ = os.Remove(filepath.Join(s.cfg.UploadDir, f.Filename))
	}
}

// baseType strips parameters such as "; charset=utf-8".
func baseType(t string) string {
	base, _, _ := strings.Cut(t, ";")
	return strings.TrimSpace(base)
}

func allowedTypes() []string {
	types := make([]string, 0, len(allowedMIMETypes))
	for t := range allowedMIMETypes {
		types = append(types, t)
	}
	return types
}
