package export

import (
	"archive/zip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"echoscript/internal/asr"
)

func TestFormatSRTTime(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0, "00:00:00,000"},
		{1.5, "00:00:01,500"},
		{61.042, "00:01:01,042"},
		{3661.5, "01:01:01,500"},
		{-2, "00:00:00,000"},
	}
	for _, c := range cases {
		if got := FormatSRTTime(c.in); got != c.want {
			t.Errorf("FormatSRTTime(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestParseFormat(t *testing.T) {
	for _, s := range []string{"txt", "MD", " srt ", "docx"} {
		if _, err := ParseFormat(s); err != nil {
			t.Errorf("ParseFormat(%q): %v", s, err)
		}
	}
	if _, err := ParseFormat("pdf"); err == nil {
		t.Error("ParseFormat(pdf) should fail")
	}
}

func TestOutputPath(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"/tmp/talk.mp4", "talk.srt"},
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ.srt"},
		{"https://youtu.be/abc123", "abc123.srt"},
		{"https://example.com/", "transcript.srt"},
	}
	for _, c := range cases {
		got := OutputPath("/out", c.input, FormatSRT)
		if got != filepath.Join("/out", c.want) {
			t.Errorf("OutputPath(%q) = %q, want %q", c.input, got, filepath.Join("/out", c.want))
		}
	}
}

func TestPlainExport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	exp, err := ForFormat(FormatTxt)
	if err != nil {
		t.Fatal(err)
	}
	if err := exp.Export(asr.Result{Text: "hello world"}, path); err != nil {
		t.Fatalf("Export: %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "hello world\n" {
		t.Fatalf("content = %q", data)
	}
}

func TestSRTExport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.srt")
	res := asr.Result{Segments: []asr.Segment{
		{Start: 0, End: 2.5, Text: " hello "},
		{Start: 2.5, End: 4, Text: "world"},
	}}
	exp, _ := ForFormat(FormatSRT)
	if err := exp.Export(res, path); err != nil {
		t.Fatalf("Export: %v", err)
	}
	data, _ := os.ReadFile(path)
	want := "1\n00:00:00,000 --> 00:00:02,500\nhello\n\n2\n00:00:02,500 --> 00:00:04,000\nworld\n\n"
	if string(data) != want {
		t.Fatalf("content = %q, want %q", data, want)
	}
}

func TestSRTExportNeedsSegments(t *testing.T) {
	exp, _ := ForFormat(FormatSRT)
	if err := exp.Export(asr.Result{Text: "no cues"}, filepath.Join(t.TempDir(), "x.srt")); err == nil {
		t.Fatal("expected error without segments")
	}
}

func TestDocxExportIsReadableZip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.docx")
	exp, _ := ForFormat(FormatDocx)
	if err := exp.Export(asr.Result{Text: "line one\nline <two> & three"}, path); err != nil {
		t.Fatalf("Export: %v", err)
	}
	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}
	defer func() { _ = zr.Close() }()

	names := map[string]bool{}
	var doc string
	for _, zf := range zr.File {
		names[zf.Name] = true
		if zf.Name == "word/document.xml" {
			rc, err := zf.Open()
			if err != nil {
				t.Fatal(err)
			}
			var b strings.Builder
			buf := make([]byte, 4096)
			for {
				n, rerr := rc.Read(buf)
				b.Write(buf[:n])
				if rerr != nil {
					break
				}
			}
			_ = rc.Close()
			doc = b.String()
		}
	}
	for _, want := range []string{"[Content_Types].xml", "_rels/.rels", "word/document.xml"} {
		if !names[want] {
			t.Fatalf("docx missing part %s", want)
		}
	}
	if !strings.Contains(doc, "line one") || !strings.Contains(doc, "line &lt;two&gt; &amp; three") {
		t.Fatalf("document.xml = %q", doc)
	}
}

func TestFormatTimestamped(t *testing.T) {
	got := FormatTimestamped([]asr.Segment{
		{Start: 0, End: 2.9, Text: "hello"},
		{Start: 3661, End: 3665, Text: " world "},
	})
	want := "[00:00:00 -> 00:00:02] hello\n[01:01:01 -> 01:01:05] world\n"
	if got != want {
		t.Fatalf("FormatTimestamped = %q, want %q", got, want)
	}
}
