package ocr

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type stubRunner struct {
	calls []string
	run   func(ctx context.Context, name string, args ...string) ([]byte, []byte, error)
}

func (s *stubRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	s.calls = append(s.calls, name+" "+strings.Join(args, " "))
	return s.run(ctx, name, args...)
}

func TestImageText(t *testing.T) {
	r := &stubRunner{run: func(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
		require.Equal(t, "tesseract", name)
		require.FileExists(t, args[0])
		return []byte("10 pcs bearing ||| 6204"), nil, nil
	}}
	e := NewEngine(Config{}, nil).WithRunner(r)

	txt, err := e.ImageText(context.Background(), "scan.jpg", []byte("fake"))
	require.NoError(t, err)
	require.Equal(t, "10 pcs bearing   6204", txt)
	require.Len(t, r.calls, 1)
	require.Contains(t, r.calls[0], "-l eng+fra")
}

func TestPDFTextRendersEveryPage(t *testing.T) {
	r := &stubRunner{run: func(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
		switch name {
		case "pdftoppm":
			prefix := args[len(args)-1]
			for _, n := range []string{"1", "2"} {
				if err := os.WriteFile(prefix+"-"+n+".png", []byte("png"), 0o600); err != nil {
					return nil, nil, err
				}
			}
			return nil, nil, nil
		default:
			return []byte("page " + filepath.Base(args[0])), nil, nil
		}
	}}
	e := NewEngine(Config{DPI: 200}, nil).WithRunner(r)

	txt, err := e.PDFText(context.Background(), []byte("%PDF-1.4"))
	require.NoError(t, err)
	require.Equal(t, "page page-1.png\n\npage page-2.png", txt)
	require.Contains(t, r.calls[0], "-r 200 -png")
}

func TestTimeoutDegradesToEmpty(t *testing.T) {
	r := &stubRunner{run: func(ctx context.Context, _ string, _ ...string) ([]byte, []byte, error) {
		<-ctx.Done()
		return nil, nil, ctx.Err()
	}}
	e := NewEngine(Config{Timeout: 20 * time.Millisecond}, nil).WithRunner(r)

	start := time.Now()
	txt, err := e.ImageText(context.Background(), "scan.png", []byte("x"))
	require.Error(t, err)
	require.True(t, errors.Is(err, context.DeadlineExceeded))
	require.Empty(t, txt)
	require.Less(t, time.Since(start), 5*time.Second)
}

func TestPDFTextWithoutPages(t *testing.T) {
	r := &stubRunner{run: func(context.Context, string, ...string) ([]byte, []byte, error) { return nil, nil, nil }}
	e := NewEngine(Config{}, nil).WithRunner(r)
	_, err := e.PDFText(context.Background(), []byte("%PDF"))
	require.Error(t, err)
}
