package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	i_fs "io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/podhmo/coral"
	"github.com/podhmo/coral/internal/scriptfs"
	"github.com/podhmo/coral/internal/scripttest"
	"github.com/stretchr/testify/require"
)

func writeScripts(t *testing.T, files map[string]string) map[string]string {
	t.Helper()
	dir := scripttest.WriteFiles(t, files)
	paths := make(map[string]string, len(files))
	for name := range files {
		paths[name] = filepath.Join(dir, name)
	}
	return paths
}

// deniedFS refuses to read one file.
type deniedFS struct {
	scriptfs.FS
	denied string
}

func (f *deniedFS) ReadFile(name string) ([]byte, error) {
	if name == f.denied {
		return nil, &i_fs.PathError{Op: "open", Path: name, Err: i_fs.ErrPermission}
	}
	return f.FS.ReadFile(name)
}

func TestRunner_Run(t *testing.T) {
	paths := writeScripts(t, map[string]string{
		"ok.coral":    `log("hi"); let xs = [3, 1, 2]; xs.reverse(); xs`,
		"parse.coral": `let = 1;`,
		"error.coral": `log("before"); 1 / 0; log("after")`,
		"null.coral":  `log("only output")`,
	})
	order := []string{paths["ok.coral"], paths["parse.coral"], paths["error.coral"], paths["null.coral"]}

	r := &Runner{Jobs: 2}
	results, err := r.Run(context.Background(), append(order, filepath.Join(t.TempDir(), "missing.coral")))
	require.NoError(t, err)
	require.Len(t, results, 5)

	for i, path := range order {
		require.Equal(t, path, results[i].Path)
	}

	ok := results[0]
	require.NoError(t, ok.Err)
	require.Equal(t, "hi\n", ok.Output)
	require.Equal(t, "[2, 1, 3]", ok.Value.Inspect())

	require.ErrorIs(t, results[1].Err, coral.ErrParse)
	require.Nil(t, results[1].Value)

	var rerr *coral.RuntimeError
	require.True(t, errors.As(results[2].Err, &rerr))
	require.Equal(t, "division by zero", rerr.Value.Message)
	require.Equal(t, "before\n", results[2].Output)

	require.NoError(t, results[3].Err)
	require.Equal(t, "only output\n", results[3].Output)

	require.ErrorIs(t, results[4].Err, os.ErrNotExist)
	require.True(t, results[4].Failed())
}

func TestRunner_IsolatedEnvironments(t *testing.T) {
	var files = map[string]string{}
	var names []string
	for i := range 10 {
		name := fmt.Sprintf("f%d.coral", i)
		files[name] = fmt.Sprintf("let n = %d; let f = fn(x) { if (x < 1) { 0 } else { n + f(x - 1) } }; f(50)", i)
		names = append(names, name)
	}
	paths := writeScripts(t, files)
	ordered := make([]string, len(names))
	for i, name := range names {
		ordered[i] = paths[name]
	}

	results, err := (&Runner{Jobs: 4}).Run(context.Background(), ordered)
	require.NoError(t, err)
	for i, res := range results {
		require.NoError(t, res.Err)
		require.Equal(t, fmt.Sprint(i*50), res.Value.Inspect(), "file %s", res.Path)
	}
}

func TestRunner_FS(t *testing.T) {
	paths := writeScripts(t, map[string]string{"a.coral": "1", "b.coral": "2"})

	r := &Runner{FS: &deniedFS{FS: scriptfs.NewOSFS(), denied: paths["b.coral"]}}
	results, err := r.Run(context.Background(), []string{paths["a.coral"], paths["b.coral"]})
	require.NoError(t, err)
	require.Equal(t, "1", results[0].Value.Inspect())
	require.ErrorIs(t, results[1].Err, i_fs.ErrPermission)
	require.EqualError(t, results[1].Err, "reading "+paths["b.coral"]+": open "+paths["b.coral"]+": permission denied")
}

func TestRunner_EchoAST(t *testing.T) {
	paths := writeScripts(t, map[string]string{"a.coral": "let x = 5;\n-x"})

	results, err := (&Runner{EchoAST: true}).Run(context.Background(), []string{paths["a.coral"]})
	require.NoError(t, err)
	require.Equal(t, "let x =  5;\n(-x)\n", results[0].AST)
	require.Equal(t, "-5", results[0].Value.Inspect())
}

func TestRunner_Canceled(t *testing.T) {
	paths := writeScripts(t, map[string]string{"a.coral": "1"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := (&Runner{}).Run(ctx, []string{paths["a.coral"]})
	require.ErrorIs(t, err, context.Canceled)
}

func TestReporter_Report(t *testing.T) {
	paths := writeScripts(t, map[string]string{
		"ok.coral":    `log("hi"); 1 + 2`,
		"parse.coral": `let = 1;`,
		"error.coral": `true + 1`,
	})
	order := []string{paths["ok.coral"], paths["parse.coral"], paths["error.coral"]}
	results, err := (&Runner{}).Run(context.Background(), order)
	require.NoError(t, err)

	var out bytes.Buffer
	failed := (&Reporter{W: &out}).Report(results)
	require.Equal(t, 2, failed)

	want := "== " + order[0] + "\n" +
		"hi\n" +
		"3\n" +
		"== " + order[1] + "\n" +
		order[1] + ": parse errors:\n" +
		"\t1:5: expected next token to be IDENT, got = instead\n" +
		"\t1:5: no prefix parse function for = found\n" +
		"== " + order[2] + "\n" +
		order[2] + ": ERROR: type mismatch: BOOLEAN + INTEGER\n"
	require.Equal(t, want, out.String())
}

func TestReporter_SingleFileHasNoHeader(t *testing.T) {
	paths := writeScripts(t, map[string]string{"a.coral": `"done"`})
	results, err := (&Runner{}).Run(context.Background(), []string{paths["a.coral"]})
	require.NoError(t, err)

	var out bytes.Buffer
	require.Equal(t, 0, (&Reporter{W: &out}).Report(results))
	require.Equal(t, "done\n", out.String())
}
