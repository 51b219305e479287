// Package models downloads and caches whisper.cpp ggml models.
package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// Registry maps known ggml model names to their download URLs.
var Registry = map[string]string{
	"ggml-base.bin":                "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-base.bin",
	"ggml-small-q5_1.bin":          "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-small-q5_1.bin",
	"ggml-medium-q5_1.bin":         "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-medium-q5_1.bin",
	"ggml-large-v3-q5_0.bin":       "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-large-v3-q5_0.bin",
	"ggml-large-v3-turbo-q8_0.bin": "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-large-v3-turbo-q8_0.bin",
	"ggml-large-v3-turbo.bin":      "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-large-v3-turbo.bin",
}

// ProgressFunc receives (downloadedBytes, totalBytes) while a model
// downloads. total is 0 when the server sends no length.
type ProgressFunc func(downloaded, total int64)

// Info describes one registry entry.
type Info struct {
	Name       string
	Downloaded bool
}

// Manager caches models in a directory, verifying them against a
// SHA-256 sidecar written after each successful download.
type Manager struct {
	dir    string
	logger *logrus.Logger
}

// NewManager returns a manager rooted at dir.
func NewManager(dir string, logger *logrus.Logger) *Manager {
	return &Manager{dir: dir, logger: logger}
}

// Path returns where name lives (or would live) locally.
func (m *Manager) Path(name string) string {
	return filepath.Join(m.dir, name)
}

// List returns registry entries sorted by name, flagging the ones
// already present locally.
func (m *Manager) List() []Info {
	out := make([]Info, 0, len(Registry))
	for name := range Registry {
		_, err := os.Stat(m.Path(name))
		out = append(out, Info{Name: name, Downloaded: err == nil})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Ensure returns the local path of name, downloading it first if it is
// missing or fails its integrity check.
func (m *Manager) Ensure(name string, progress ProgressFunc) (string, error) {
	dest := m.Path(name)
	ok, err := m.verify(dest)
	if err != nil {
		return "", err
	}
	if ok {
		m.logger.Debugf("model %s already cached", name)
		return dest, nil
	}

	url, known := Registry[name]
	if !known {
		return "", fmt.Errorf("unknown model %q; run models list", name)
	}
	if err := m.download(url, dest, progress); err != nil {
		return "", err
	}
	return dest, nil
}

// verify reports whether dest exists and matches its sidecar. A file
// without a sidecar (user-supplied model) is accepted as-is; a
// mismatch removes the file so it gets re-downloaded.
func (m *Manager) verify(dest string) (bool, error) {
	if _, err := os.Stat(dest); err != nil {
		return false, nil
	}
	want, err := os.ReadFile(dest + ".sha256")
	if err != nil {
		if os.IsNotExist(err) {
			return true, nil
		}
		return false, err
	}
	got, err := fileSHA256(dest)
	if err != nil {
		return false, err
	}
	if got != strings.TrimSpace(string(want)) {
		m.logger.Warnf("model %s failed integrity check, re-downloading", filepath.Base(dest))
		if err := os.Remove(dest); err != nil {
			return false, err
		}
		return false, nil
	}
	return true, nil
}

// download fetches url into dest atomically: write to .part, rename on
// success, record the sidecar checksum.
func (m *Manager) download(url, dest string, progress ProgressFunc) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}

	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed: %s", resp.Status)
	}

	part := dest + ".part"
	out, err := os.Create(part)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	hash := sha256.New()
	var downloaded int64
	buf := make([]byte, 64*1024)
	for {
		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := out.Write(buf[:n]); werr != nil {
				_ = os.Remove(part)
				return werr
			}
			_, _ = hash.Write(buf[:n])
			downloaded += int64(n)
			if progress != nil {
				progress(downloaded, resp.ContentLength)
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			_ = os.Remove(part)
			return rerr
		}
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(part)
		return err
	}
	if err := os.Rename(part, dest); err != nil {
		return err
	}
	sum := hex.EncodeToString(hash.Sum(nil))
	if err := os.WriteFile(dest+".sha256", []byte(sum+"\n"), 0o644); err != nil {
		return err
	}
	m.logger.Infof("downloaded %s (%d bytes)", filepath.Base(dest), downloaded)
	return nil
}

func fileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
