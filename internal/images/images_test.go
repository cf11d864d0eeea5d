package images

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/m3rciful/zonebot/internal/domain"
)

func TestSavePlacesImage(t *testing.T) {
	root := t.TempDir()
	s, err := New(root)
	require.NoError(t, err)

	path, err := s.Save(context.Background(), "BTC", domain.WindowWeek, strings.NewReader("png-bytes"))
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, "BTC", "week.png"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "png-bytes", string(data))

	_, err = s.Save(context.Background(), "BTC", domain.WindowWeek, strings.NewReader("v2"))
	require.NoError(t, err)
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "v2", string(data))

	entries, err := os.ReadDir(filepath.Join(root, "BTC"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestPathRejectsTraversal(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)
	for _, bad := range []string{"", ".", "..", "../x", `a\b`} {
		_, err := s.Path(bad, domain.WindowDay)
		require.ErrorIs(t, err, ErrInvalidName, bad)
	}
}

func TestNewRequiresDir(t *testing.T) {
	_, err := New("  ")
	require.Error(t, err)
}
