package log

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutTypeAlias(t *testing.T) {
	tests := []struct {
		name string
		want OutType
	}{
		{"console", ConsoleOut},
		{"file", NormalOut},
		{"Console | file", ConsoleOut | NormalOut},
		{"", ConsoleOut},
		{"nonsense", ConsoleOut},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, OutTypeAlias(tt.name))
		})
	}
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, LevelWarn, ParseLevel(" warn "))
	assert.Equal(t, LevelInfo, ParseLevel("verbose"))
}

func TestFieldsPrefix(t *testing.T) {
	f := Fields{"b": 2, "a": 1}.WithPrefix("Client 127.0.0.1")
	assert.Equal(t, "Client 127.0.0.1", f.Prefix())
	assert.Equal(t, "[Client 127.0.0.1] a=1 b=2", f.String())
	assert.Equal(t, "", Fields{}.Prefix())
}

func TestSetupFileOutput(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Setup(Options{Name: "test", Path: dir, Level: LevelWarn, Out: NormalOut}))
	defer func() {
		_ = Setup(Options{Level: LevelDebug, Out: ConsoleOut})
	}()
	assert.False(t, IsDebugEnabled())

	Info("not written")
	Error("written %d", 1)
	Flush()

	data, err := os.ReadFile(filepath.Join(dir, "test-error.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "written 1")
	assert.NotContains(t, string(data), "not written")

	ChangeLogLevel(LevelDebug)
	assert.True(t, IsDebugEnabled())
}
