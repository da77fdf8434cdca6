package oui

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestOpenStore(t *testing.T) {
	tests := map[string]struct {
		content  *string
		wantLen  int
		wantKeys map[string]string
	}{
		"missing file": {content: nil, wantLen: 0},
		"valid": {
			content:  ptr(`{"525400": "QEMU Virtual NIC", "000C29": "VMware Inc"}`),
			wantLen:  2,
			wantKeys: map[string]string{"525400": "QEMU Virtual NIC"},
		},
		"null means cached miss": {
			content:  ptr(`{"0A0B0C": null}`),
			wantLen:  1,
			wantKeys: map[string]string{"0A0B0C": ""},
		},
		"truncated json":  {content: ptr(`{"525400": "QEMU`), wantLen: 0},
		"not an object":   {content: ptr(`["525400"]`), wantLen: 0},
		"empty file":      {content: ptr(``), wantLen: 0},
		"non string kept": {content: ptr(`{"525400": "QEMU Virtual NIC", "X": 1}`), wantLen: 1},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "vendor_cache.json")
			if test.content != nil {
				require.NoError(t, os.WriteFile(path, []byte(*test.content), 0o644))
			}

			s := OpenStore(path)
			assert.Equal(t, test.wantLen, s.Len())
			for k, v := range test.wantKeys {
				got, ok := s.Get(k)
				assert.True(t, ok, k)
				assert.Equal(t, v, got, k)
			}
		})
	}
}

func TestStore_SaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "oui_cache.json")

	s := OpenStore(path)
	s.Set("525400", "QEMU Virtual NIC")
	s.Set("0A0B0C", "")
	require.NoError(t, s.Save())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "QEMU Virtual NIC", gjson.GetBytes(content, "525400").String())

	reopened := OpenStore(path)
	assert.Equal(t, 2, reopened.Len())
	v, ok := reopened.Get("0A0B0C")
	assert.True(t, ok)
	assert.Equal(t, "", v)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp", "temp file left behind")
	}
}

func TestStore_SaveRecreatesDeletedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vendor_cache.json")

	s := OpenStore(path)
	s.Set("525400", "QEMU Virtual NIC")
	require.NoError(t, s.Save())
	require.NoError(t, os.Remove(path))

	require.NoError(t, s.Save())
	assert.FileExists(t, path)
}

func TestStore_Clear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vendor_cache.json")

	s := OpenStore(path)
	s.Set("525400", "QEMU Virtual NIC")
	require.NoError(t, s.Save())

	require.NoError(t, s.Clear())
	assert.Equal(t, 0, s.Len())
	assert.NoFileExists(t, path)
	assert.NoError(t, s.Clear(), "clearing twice is fine")
}

func ptr(s string) *string {
	return &s
}
