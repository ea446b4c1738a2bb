package vectorstore

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/lumenworks/askdoc/internal/models"
)

// Collection file layout (little-endian): model string, dimension, count,
// then per chunk: seq, locator (kind, page, row, name), text, vector.
// Strings are length-prefixed with uint32.

var locatorKindCodes = map[models.LocatorKind]byte{
	models.LocatorNone: 0,
	models.LocatorPage: 1,
	models.LocatorRow:  2,
	models.LocatorName: 3,
}

var locatorKindByCode = map[byte]models.LocatorKind{
	0: models.LocatorNone,
	1: models.LocatorPage,
	2: models.LocatorRow,
	3: models.LocatorName,
}

// save writes the collection to a temp file and renames it over the real
// path, so readers never observe a half-written collection. Callers hold
// the collection lock.
func (c *Collection) save() error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("create collection dir: %w", err)
	}
	tmp := c.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create collection file: %w", err)
	}
	w := bufio.NewWriter(f)
	if err := c.encode(w); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("flush collection: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close collection: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("commit collection: %w", err)
	}
	return nil
}

func (c *Collection) encode(w io.Writer) error {
	if err := writeString(w, c.model); err != nil {
		return fmt.Errorf("write model: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(c.dim)); err != nil {
		return fmt.Errorf("write dimension: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(c.chunks))); err != nil {
		return fmt.Errorf("write count: %w", err)
	}
	for _, ch := range c.chunks {
		if err := binary.Write(w, binary.LittleEndian, uint32(ch.Seq)); err != nil {
			return fmt.Errorf("write seq: %w", err)
		}
		loc := ch.Locator
		if _, err := w.Write([]byte{locatorKindCodes[loc.Kind]}); err != nil {
			return fmt.Errorf("write locator kind: %w", err)
		}
		if err := binary.Write(w, binary.LittleEndian, uint32(loc.Page)); err != nil {
			return fmt.Errorf("write locator page: %w", err)
		}
		if err := binary.Write(w, binary.LittleEndian, uint32(loc.Row)); err != nil {
			return fmt.Errorf("write locator row: %w", err)
		}
		if err := writeString(w, loc.Name); err != nil {
			return fmt.Errorf("write locator name: %w", err)
		}
		if err := writeString(w, ch.Text); err != nil {
			return fmt.Errorf("write text: %w", err)
		}
		if _, err := w.Write(float32SliceToBytes(ch.Embedding)); err != nil {
			return fmt.Errorf("write vector: %w", err)
		}
	}
	return nil
}

// loadCollection reads a collection file written by save. The document id is
// the file name without extension.
func loadCollection(path string) (*Collection, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open collection: %w", err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	col := &Collection{
		docID: strings.TrimSuffix(filepath.Base(path), collectionExt),
		path:  path,
	}
	if col.model, err = readString(r); err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}
	var dim, count uint32
	if err := binary.Read(r, binary.LittleEndian, &dim); err != nil {
		return nil, fmt.Errorf("read dimension: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("read count: %w", err)
	}
	col.dim = int(dim)
	col.chunks = make([]models.Chunk, 0, count)
	buf := make([]byte, col.dim*4)
	for i := uint32(0); i < count; i++ {
		var seq uint32
		if err := binary.Read(r, binary.LittleEndian, &seq); err != nil {
			return nil, fmt.Errorf("read seq: %w", err)
		}
		kindCode, err := r.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("read locator kind: %w", err)
		}
		var page, row uint32
		if err := binary.Read(r, binary.LittleEndian, &page); err != nil {
			return nil, fmt.Errorf("read locator page: %w", err)
		}
		if err := binary.Read(r, binary.LittleEndian, &row); err != nil {
			return nil, fmt.Errorf("read locator row: %w", err)
		}
		name, err := readString(r)
		if err != nil {
			return nil, fmt.Errorf("read locator name: %w", err)
		}
		text, err := readString(r)
		if err != nil {
			return nil, fmt.Errorf("read text: %w", err)
		}
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, fmt.Errorf("read vector: %w", err)
		}
		col.chunks = append(col.chunks, models.Chunk{
			DocumentID: col.docID,
			Seq:        int(seq),
			Text:       text,
			Locator: models.Locator{
				Kind: locatorKindByCode[kindCode],
				Page: int(page),
				Row:  int(row),
				Name: name,
			},
			Embedding: bytesToFloat32Slice(buf),
		})
	}
	return col, nil
}

func writeString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
		return err
	}
	_, err := w.Write([]byte(s))
	return err
}

func readString(r io.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}

func float32SliceToBytes(s []float32) []byte {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}
