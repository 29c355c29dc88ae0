package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// LoadDotenvIfPresent: 존재하는 dotenv 파일만 순서대로 로드하고, 로드한 경로 목록을 반환합니다.
// 이미 설정된 환경 변수는 덮어쓰지 않습니다.
func LoadDotenvIfPresent(paths ...string) ([]string, error) {
	if len(paths) == 0 {
		paths = []string{".env"}
	}

	loaded := make([]string, 0, len(paths))
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return loaded, fmt.Errorf("stat dotenv file failed path=%s: %w", path, err)
		}

		if err := godotenv.Load(path); err != nil {
			return loaded, fmt.Errorf("load dotenv file failed path=%s: %w", path, err)
		}
		loaded = append(loaded, path)
	}

	return loaded, nil
}
