package corpus

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/parquet-go/parquet-go"
	"go.uber.org/zap"

	"github.com/kailas-cloud/eulex/internal/domain"
	"github.com/kailas-cloud/eulex/internal/domain/law"
)

const readBatch = 256

// row mirrors the Hugging Face eurlex export schema.
type row struct {
	CelexID         string   `parquet:"celex_id"`
	Title           string   `parquet:"title"`
	Text            string   `parquet:"text"`
	EurovocConcepts []string `parquet:"eurovoc_concepts,list"`
}

// Load reads every *.parquet and *.jsonl file under path (a file or a
// directory) in lexical file order. Any failure is fatal for retrieval and
// wraps domain.ErrCorpusUnavailable.
func Load(ctx context.Context, path string, logger *zap.Logger) (*Corpus, error) {
	files, err := corpusFiles(path)
	if err != nil {
		return nil, fmt.Errorf("corpus %s: %w: %w", path, domain.ErrCorpusUnavailable, err)
	}

	var docs []law.Document
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("load corpus: %w", err)
		}
		var batch []law.Document
		switch strings.ToLower(filepath.Ext(f)) {
		case ".parquet":
			batch, err = readParquet(f)
		default:
			batch, err = readJSONL(f)
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w: %w", filepath.Base(f), domain.ErrCorpusUnavailable, err)
		}
		logger.Debug("Corpus file loaded", zap.String("file", f), zap.Int("documents", len(batch)))
		docs = append(docs, batch...)
	}

	c, err := New(docs)
	if err != nil {
		return nil, err
	}
	logger.Info("Corpus loaded", zap.Int("files", len(files)), zap.Int("documents", c.Len()))
	return c, nil
}

func corpusFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err //nolint:wrapcheck // wrapped by caller
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string
	for _, pattern := range []string{"*.parquet", "*.jsonl"} {
		m, err := filepath.Glob(filepath.Join(path, pattern))
		if err != nil {
			return nil, fmt.Errorf("glob %s: %w", pattern, err)
		}
		files = append(files, m...)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no parquet or jsonl files found in %s", path)
	}
	sort.Strings(files)
	return files, nil
}

func readParquet(path string) ([]law.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	r := parquet.NewGenericReader[row](f)
	defer r.Close()

	docs := make([]law.Document, 0, r.NumRows())
	buf := make([]row, readBatch)
	for {
		n, err := r.Read(buf)
		for _, rw := range buf[:n] {
			docs = append(docs, law.Document{
				CelexID:         rw.CelexID,
				Title:           rw.Title,
				Text:            rw.Text,
				EurovocConcepts: rw.EurovocConcepts,
			})
		}
		if errors.Is(err, io.EOF) {
			return docs, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read rows: %w", err)
		}
	}
}

func readJSONL(path string) ([]law.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	var docs []law.Document
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 1<<20), 64<<20)
	line := 0
	for sc.Scan() {
		line++
		b := sc.Bytes()
		if len(strings.TrimSpace(string(b))) == 0 {
			continue
		}
		var d law.Document
		if err := json.Unmarshal(b, &d); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		docs = append(docs, d)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	return docs, nil
}
