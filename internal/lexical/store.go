package lexical

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"go.etcd.io/bbolt"
)

const formatVersion = 2

var (
	bucketMeta     = []byte("meta")
	bucketDocs     = []byte("docs")
	bucketPostings = []byte("postings")

	keyVersion     = []byte("version")
	keyAvgLen      = []byte("avg_len")
	keyK1          = []byte("k1")
	keyB           = []byte("b")
	keyFingerprint = []byte("fingerprint")
)

// errNoIndex is returned by loadIndex when no file exists at path.
var errNoIndex = errors.New("lexical: no persisted index")

// saveIndex writes idx to a fresh bbolt file at path. Docs are keyed by their
// big-endian corpus position so a cursor walks them in order; each value is
// uvarint(len) followed by the id. Postings are uvarint pairs of
// (doc delta, tf).
func saveIndex(path string, idx *Index, fingerprint uint64) error {
	tmp := path + ".tmp"
	_ = os.Remove(tmp)

	bdb, err := bbolt.Open(tmp, 0o600, &bbolt.Options{Timeout: 5 * time.Second, NoSync: true})
	if err != nil {
		return fmt.Errorf("open %s: %w", tmp, err)
	}

	err = bdb.Update(func(tx *bbolt.Tx) error {
		meta, err := tx.CreateBucket(bucketMeta)
		if err != nil {
			return err //nolint:wrapcheck // wrapped below
		}
		if err := putUint(meta, keyVersion, formatVersion); err != nil {
			return err
		}
		if err := putUint(meta, keyFingerprint, fingerprint); err != nil {
			return err
		}
		if err := putFloat(meta, keyAvgLen, idx.avgLen); err != nil {
			return err
		}
		if err := putFloat(meta, keyK1, idx.k1); err != nil {
			return err
		}
		if err := putFloat(meta, keyB, idx.b); err != nil {
			return err
		}

		docs, err := tx.CreateBucket(bucketDocs)
		if err != nil {
			return err //nolint:wrapcheck // wrapped below
		}
		for i, id := range idx.docIDs {
			k := make([]byte, 4)
			binary.BigEndian.PutUint32(k, uint32(i))
			v := binary.AppendUvarint(nil, uint64(idx.docLen[i]))
			v = append(v, id...)
			if err := docs.Put(k, v); err != nil {
				return err //nolint:wrapcheck // wrapped below
			}
		}

		postings, err := tx.CreateBucket(bucketPostings)
		if err != nil {
			return err //nolint:wrapcheck // wrapped below
		}
		for term, plist := range idx.postings {
			if err := postings.Put([]byte(term), encodePostings(plist)); err != nil {
				return err //nolint:wrapcheck // wrapped below
			}
		}
		return nil
	})
	if err != nil {
		_ = bdb.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("write index: %w", err)
	}
	if err := bdb.Sync(); err != nil {
		_ = bdb.Close()
		return fmt.Errorf("sync index: %w", err)
	}
	if err := bdb.Close(); err != nil {
		return fmt.Errorf("close index: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename index: %w", err)
	}
	return nil
}

// loadIndex reads an index written by saveIndex together with the corpus
// fingerprint it was built from.
func loadIndex(path string) (*Index, uint64, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, 0, errNoIndex
	}

	bdb, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 5 * time.Second, ReadOnly: true})
	if err != nil {
		return nil, 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer bdb.Close()

	idx := &Index{postings: make(map[string][]posting)}
	var fingerprint uint64

	err = bdb.View(func(tx *bbolt.Tx) error {
		meta := tx.Bucket(bucketMeta)
		docs := tx.Bucket(bucketDocs)
		postings := tx.Bucket(bucketPostings)
		if meta == nil || docs == nil || postings == nil {
			return fmt.Errorf("missing buckets")
		}
		if v := getUint(meta, keyVersion); v != formatVersion {
			return fmt.Errorf("unsupported format version %d", v)
		}
		fingerprint = getUint(meta, keyFingerprint)
		idx.avgLen = getFloat(meta, keyAvgLen)
		idx.k1 = getFloat(meta, keyK1)
		idx.b = getFloat(meta, keyB)

		n := docs.Stats().KeyN
		idx.docIDs = make([]string, 0, n)
		idx.docLen = make([]uint32, 0, n)
		err := docs.ForEach(func(_, v []byte) error {
			dl, sz := binary.Uvarint(v)
			if sz <= 0 {
				return fmt.Errorf("corrupt doc record")
			}
			idx.docLen = append(idx.docLen, uint32(dl))
			idx.docIDs = append(idx.docIDs, string(v[sz:]))
			return nil
		})
		if err != nil {
			return err
		}

		return postings.ForEach(func(k, v []byte) error {
			plist, err := decodePostings(v)
			if err != nil {
				return fmt.Errorf("term %q: %w", k, err)
			}
			idx.postings[string(k)] = plist
			return nil
		})
	})
	if err != nil {
		return nil, 0, fmt.Errorf("read index %s: %w", path, err)
	}
	return idx, fingerprint, nil
}

func encodePostings(plist []posting) []byte {
	buf := make([]byte, 0, len(plist)*2)
	var prev uint32
	for _, p := range plist {
		buf = binary.AppendUvarint(buf, uint64(p.doc-prev))
		buf = binary.AppendUvarint(buf, uint64(p.tf))
		prev = p.doc
	}
	return buf
}

func decodePostings(b []byte) ([]posting, error) {
	var out []posting
	var doc uint32
	for len(b) > 0 {
		delta, n := binary.Uvarint(b)
		if n <= 0 {
			return nil, fmt.Errorf("corrupt posting list")
		}
		b = b[n:]
		tf, n := binary.Uvarint(b)
		if n <= 0 {
			return nil, fmt.Errorf("corrupt posting list")
		}
		b = b[n:]
		doc += uint32(delta)
		out = append(out, posting{doc: doc, tf: uint32(tf)})
	}
	return out, nil
}

func putUint(b *bbolt.Bucket, k []byte, v uint64) error {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	return b.Put(k, buf) //nolint:wrapcheck // wrapped by caller
}

func putFloat(b *bbolt.Bucket, k []byte, v float64) error {
	return putUint(b, k, math.Float64bits(v))
}

func getUint(b *bbolt.Bucket, k []byte) uint64 {
	v := b.Get(k)
	if len(v) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(v)
}

func getFloat(b *bbolt.Bucket, k []byte) float64 {
	return math.Float64frombits(getUint(b, k))
}
