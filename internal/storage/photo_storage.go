package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/h2non/filetype"
)

// PhotoStorage отвечает за файловое хранилище фотографий объявлений.
// Тип файла определяется по содержимому, расширению в имени не доверяем.
type PhotoStorage struct {
	rootPath       string
	maxUploadBytes int64
}

// NewPhotoStorage создаёт файловое хранилище.
func NewPhotoStorage(rootPath string, maxUploadMB int64) (*PhotoStorage, error) {
	if err := os.MkdirAll(rootPath, 0o755); err != nil {
		return nil, fmt.Errorf("storage: не удалось создать каталог %s: %w", rootPath, err)
	}

	return &PhotoStorage{
		rootPath:       rootPath,
		maxUploadBytes: maxUploadMB * 1024 * 1024,
	}, nil
}

// Save проверяет, что содержимое — изображение, сохраняет файл и возвращает
// относительный путь и MIME-тип.
func (s *PhotoStorage) Save(ctx context.Context, ownerID uuid.UUID, originalName string, data []byte) (string, string, error) {
	if err := ctx.Err(); err != nil {
		return "", "", err
	}

	if int64(len(data)) > s.maxUploadBytes {
		return "", "", fmt.Errorf("storage: размер файла превышает лимит %d байт", s.maxUploadBytes)
	}

	kind, err := filetype.Match(data)
	if err != nil {
		return "", "", fmt.Errorf("storage: не удалось определить тип файла: %w", err)
	}
	if !filetype.IsImage(data) {
		return "", "", fmt.Errorf("storage: файл не является изображением")
	}

	// Имя строится заново, от исходного имени остаётся только факт загрузки.
	fileName := fmt.Sprintf("%s_%d.%s", ownerID.String(), time.Now().UnixNano(), kind.Extension)

	ownerDir := filepath.Join(s.rootPath, ownerID.String())
	if err := os.MkdirAll(ownerDir, 0o755); err != nil {
		return "", "", fmt.Errorf("storage: не удалось создать каталог пользователя: %w", err)
	}

	targetPath := filepath.Join(ownerDir, fileName)
	tempPath := targetPath + ".tmp"

	if err := os.WriteFile(tempPath, data, 0o644); err != nil {
		return "", "", fmt.Errorf("storage: ошибка записи файла: %w", err)
	}

	if err := os.Rename(tempPath, targetPath); err != nil {
		_ = os.Remove(tempPath)
		return "", "", fmt.Errorf("storage: не удалось переименовать файл: %w", err)
	}

	relative := filepath.Join(ownerID.String(), fileName)
	return relative, kind.MIME.Value, nil
}

// Delete удаляет файл из хранилища.
func (s *PhotoStorage) Delete(ctx context.Context, relativePath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	target := filepath.Join(s.rootPath, relativePath)
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("storage: не удалось удалить файл: %w", err)
	}
	return nil
}
