package storage

import (
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// allowed image extensions, lowercase.
var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

// LocalStorage is the blob store: it accepts uploads and returns
// retrievable URLs. Product files land under products/<slug>/<uuid>.<ext>.
type LocalStorage struct {
	root      string
	publicURL string
}

// NewLocalStorage creates storage rooted at dir, served under publicURL.
func NewLocalStorage(dir, publicURL string) *LocalStorage {
	return &LocalStorage{root: dir, publicURL: strings.TrimSuffix(publicURL, "/")}
}

// Root is the directory served as static files.
func (s *LocalStorage) Root() string {
	return s.root
}

// SaveProductImage writes one uploaded file into the product's
// directory and returns its public URL.
func (s *LocalStorage) SaveProductImage(c *fiber.Ctx, file *multipart.FileHeader, productSlug string) (string, error) {
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedExtensions[ext] {
		return "", fmt.Errorf("unsupported image type %q", ext)
	}

	dir := filepath.Join(s.root, "products", productSlug)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	filename := uuid.New().String() + ext
	if err := c.SaveFile(file, filepath.Join(dir, filename)); err != nil {
		return "", err
	}

	return fmt.Sprintf("%s/products/%s/%s", s.publicURL, productSlug, filename), nil
}

// Remove deletes a previously stored file given its public URL. Used to
// undo writes when an enclosing transaction rolls back.
func (s *LocalStorage) Remove(publicURL string) error {
	rel := strings.TrimPrefix(publicURL, s.publicURL+"/")
	if rel == publicURL || strings.Contains(rel, "..") {
		return fmt.Errorf("url %q is outside storage", publicURL)
	}
	err := os.Remove(filepath.Join(s.root, filepath.FromSlash(rel)))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
