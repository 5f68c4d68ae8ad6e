package configstore

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/subosito/gotenv"

	"github.com/satriahrh/hal-voice/domain"
)

var _ domain.ConfigStore = (*DotenvStore)(nil)

// encodedPrefix marks a value stored as base64 because it cannot be written
// literally between single quotes.
const encodedPrefix = "base64:"

// DotenvStore keeps the credential triple in a dotenv-format file, one key per line.
// Values are single-quoted so gotenv reads them back without expanding "$VAR".
type DotenvStore struct {
	path string
	mu   sync.Mutex
}

func NewDotenvStore(path string) *DotenvStore {
	return &DotenvStore{path: path}
}

func (s *DotenvStore) Load(ctx context.Context) (domain.Configuration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	env, err := gotenv.Read(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.Configuration{}, nil
		}
		return domain.Configuration{}, fmt.Errorf("reading config store: %w", err)
	}

	var cfg domain.Configuration
	for _, field := range []struct {
		key string
		dst *string
	}{
		{domain.ChatAPIKeyName, &cfg.ChatAPIKey},
		{domain.SpeechAPIKeyName, &cfg.SpeechAPIKey},
		{domain.VoiceIDName, &cfg.VoiceID},
	} {
		value, err := decodeValue(env[field.key])
		if err != nil {
			return domain.Configuration{}, fmt.Errorf("decoding %s: %w", field.key, err)
		}
		*field.dst = value
	}
	return cfg, nil
}

func (s *DotenvStore) Save(ctx context.Context, cfg domain.Configuration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	content := marshal(gotenv.Env{
		domain.ChatAPIKeyName:   cfg.ChatAPIKey,
		domain.SpeechAPIKeyName: cfg.SpeechAPIKey,
		domain.VoiceIDName:      cfg.VoiceID,
	})

	// Write then rename so a crash never leaves a half-written key file.
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".hal-config-*")
	if err != nil {
		return fmt.Errorf("creating config store: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("securing config store: %w", err)
	}
	if _, err := tmp.WriteString(content + "\n"); err != nil {
		tmp.Close()
		return fmt.Errorf("writing config store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing config store: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replacing config store: %w", err)
	}
	return nil
}

// marshal writes env sorted by key with every value single-quoted.
func marshal(env gotenv.Env) string {
	lines := make([]string, 0, len(env))
	for k, v := range env {
		lines = append(lines, fmt.Sprintf("%s='%s'", k, encodeValue(v)))
	}
	sort.Strings(lines)
	return strings.Join(lines, "\n")
}

// encodeValue returns v unchanged unless gotenv could misread it between single quotes.
func encodeValue(v string) string {
	if !strings.ContainsAny(v, "\r\n\\") && v == strings.TrimSpace(v) && !strings.HasPrefix(v, encodedPrefix) {
		return v
	}
	return encodedPrefix + base64.StdEncoding.EncodeToString([]byte(v))
}

func decodeValue(v string) (string, error) {
	encoded, ok := strings.CutPrefix(v, encodedPrefix)
	if !ok {
		return v, nil
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
