package scanner

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jenian/envinject/internal/errors"
)

// writeTree creates files (slash paths relative to root) with fixed content
func writeTree(t *testing.T, root string, rels ...string) {
	t.Helper()
	for _, rel := range rels {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte("content of "+rel), 0644))
	}
}

func abs(root string, rels ...string) []string {
	out := make([]string, 0, len(rels))
	for _, rel := range rels {
		out = append(out, filepath.Join(root, filepath.FromSlash(rel)))
	}
	return out
}

func TestSplitEntries(t *testing.T) {
	tests := []struct {
		raw  string
		want []string
	}{
		{"", nil},
		{"a.txt", []string{"a.txt"}},
		{"a.txt\nb.txt", []string{"a.txt", "b.txt"}},
		{"  a.txt  \r\n\r\n\t\n b.txt\r\n", []string{"a.txt", "b.txt"}},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitEntries(tt.raw))
		})
	}
}

func TestResolve_NonRecursiveWildcard(t *testing.T) {
	tmpDir := t.TempDir()
	writeTree(t, tmpDir, "a.txt", "b.txt", "sub/c.txt")

	files, err := NewScanner().Resolve(tmpDir, "*.txt")
	require.NoError(t, err)
	assert.Equal(t, abs(tmpDir, "a.txt", "b.txt"), files)
}

func TestResolve_RecursiveWildcard(t *testing.T) {
	tmpDir := t.TempDir()
	writeTree(t, tmpDir, "a.txt", "sub/c.txt", "sub/deep/d.txt", "sub/e.xml")

	files, err := NewScanner().Resolve(tmpDir, "**/*.txt")
	require.NoError(t, err)
	assert.Equal(t, abs(tmpDir, "a.txt", "sub/c.txt", "sub/deep/d.txt"), files)
}

func TestResolve_QuestionMark(t *testing.T) {
	tmpDir := t.TempDir()
	writeTree(t, tmpDir, "a1.conf", "a22.conf")

	files, err := NewScanner().Resolve(tmpDir, "a?.conf")
	require.NoError(t, err)
	assert.Equal(t, abs(tmpDir, "a1.conf"), files)
}

func TestResolve_LiteralsAndDedup(t *testing.T) {
	tmpDir := t.TempDir()
	writeTree(t, tmpDir, "config/app.xml", "b.txt", "a.txt")

	raw := "config/app.xml\n  b.txt \n\n*.txt\n./config/app.xml\nmissing.txt\n"
	files, err := NewScanner().Resolve(tmpDir, raw)
	require.NoError(t, err)

	// Entry order first, then walk order inside the glob; duplicates dropped.
	assert.Equal(t, abs(tmpDir, "config/app.xml", "b.txt", "a.txt"), files)
}

func TestResolve_AbsoluteLiteralStaysUnderRoot(t *testing.T) {
	tmpDir := t.TempDir()
	writeTree(t, tmpDir, "etc/app.conf")

	files, err := NewScanner().Resolve(tmpDir, "/etc/app.conf")
	require.NoError(t, err)
	assert.Equal(t, abs(tmpDir, "etc/app.conf"), files)
}

func TestResolve_OutsideWorkingDirectory(t *testing.T) {
	parent := t.TempDir()
	writeTree(t, parent, "outside.txt", "work/inside.txt")
	root := filepath.Join(parent, "work")

	files, err := NewScanner().Resolve(root, "../outside.txt\n../*.txt\ninside.txt")
	require.NoError(t, err)
	assert.Equal(t, abs(root, "inside.txt"), files)
}

func TestResolve_GlobCaseInsensitiveByDefault(t *testing.T) {
	tmpDir := t.TempDir()
	writeTree(t, tmpDir, "README.TXT", "Config/App.Xml")

	files, err := NewScanner().Resolve(tmpDir, "*.txt\nconfig/*.xml")
	require.NoError(t, err)
	assert.Equal(t, abs(tmpDir, "README.TXT", "Config/App.Xml"), files)

	sensitive := NewScanner()
	sensitive.SetCaseSensitive(true)
	files, err = sensitive.Resolve(tmpDir, "*.txt\nconfig/*.xml")
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestResolve_ExcludedDirsAndBinaries(t *testing.T) {
	tmpDir := t.TempDir()
	writeTree(t, tmpDir, ".git/config.txt", "node_modules/x.txt", "src/a.txt", "src/logo.png")

	s := NewScanner()
	s.AddExcludeDirs([]string{"node_modules/", " "})

	files, err := s.Resolve(tmpDir, "**/*")
	require.NoError(t, err)
	assert.Equal(t, abs(tmpDir, "src/a.txt"), files)
}

func TestResolve_LiteralDirectoryIsSkipped(t *testing.T) {
	tmpDir := t.TempDir()
	writeTree(t, tmpDir, "dir/a.txt")

	files, err := NewScanner().Resolve(tmpDir, "dir")
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestResolve_InvalidWorkingDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	writeTree(t, tmpDir, "file.txt")

	for _, dir := range []string{filepath.Join(tmpDir, "nope"), filepath.Join(tmpDir, "file.txt")} {
		_, err := NewScanner().Resolve(dir, "*.txt")
		require.Error(t, err)
		assert.Equal(t, errors.ErrInvalidWorkingDirectory, errors.GetErrorCode(err))
	}
}

func TestResolve_MalformedGlob(t *testing.T) {
	tmpDir := t.TempDir()
	_, err := NewScanner().Resolve(tmpDir, "[a-.txt")
	require.Error(t, err)
	assert.Equal(t, errors.ErrInvalidPattern, errors.GetErrorCode(err))
}

func TestResolve_EmptyList(t *testing.T) {
	files, err := NewScanner().Resolve(t.TempDir(), "\n \n")
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestResolve_GlobCharactersInLiteralName(t *testing.T) {
	tmpDir := t.TempDir()
	writeTree(t, tmpDir, "app[1].txt", "{x}.txt", "conf/a?.ini", "app1.txt", "app2.txt")

	files, err := NewScanner().Resolve(tmpDir, "app[1].txt\n{x}.txt\nconf/a?.ini")
	require.NoError(t, err)
	assert.Equal(t, abs(tmpDir, "app[1].txt", "{x}.txt", "conf/a?.ini"), files)

	// Without a file of that exact name the entry is a glob
	files, err = NewScanner().Resolve(tmpDir, "app[12].txt")
	require.NoError(t, err)
	assert.Equal(t, abs(tmpDir, "app1.txt", "app2.txt"), files)
}

func TestResolve_SymlinksOutsideRootAreSkipped(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	parent := t.TempDir()
	writeTree(t, parent, "secret.txt", "work/real.txt")
	root := filepath.Join(parent, "work")
	require.NoError(t, os.Symlink(filepath.Join(parent, "secret.txt"), filepath.Join(root, "escape.txt")))
	require.NoError(t, os.Symlink(filepath.Join(root, "real.txt"), filepath.Join(root, "alias.txt")))

	files, err := NewScanner().Resolve(root, "*.txt")
	require.NoError(t, err)
	assert.Equal(t, abs(root, "alias.txt", "real.txt"), files)

	files, err = NewScanner().Resolve(root, "escape.txt\nalias.txt")
	require.NoError(t, err)
	assert.Equal(t, abs(root, "alias.txt"), files)
}

func TestResolve_InMemoryFilesystem(t *testing.T) {
	mem := afero.NewMemMapFs()
	for _, rel := range []string{"a.txt", "sub/b.txt", "sub/c.xml", ".git/d.txt"} {
		require.NoError(t, afero.WriteFile(mem, filepath.Join("/work", filepath.FromSlash(rel)), []byte("x"), 0644))
	}

	s := NewScanner()
	s.SetFS(mem)
	files, err := s.Resolve("/work", "**/*.txt\nsub/c.xml")
	require.NoError(t, err)
	assert.Equal(t, abs("/work", "a.txt", "sub/b.txt", "sub/c.xml"), files)

	_, err = s.Resolve("/missing", "*.txt")
	assert.Equal(t, errors.ErrInvalidWorkingDirectory, errors.GetErrorCode(err))
}
