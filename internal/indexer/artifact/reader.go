package artifact

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searchindex"
)

// Info describes the artifact file an index was read from.
type Info struct {
	Path     string    `json:"path"`
	Checksum string    `json:"checksum"`
	Size     int64     `json:"size"`
	ModTime  time.Time `json:"modTime"`
}

// Open reads, parses and validates the artifact at path. The checksum is
// taken over the decompressed content so a .gz file and its source agree.
func Open(path string) (*searchindex.Index, Info, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, Info{}, fmt.Errorf("stat artifact: %w", err)
	}
	data, err := searchindex.ReadFile(path)
	if err != nil {
		return nil, Info{}, err
	}
	info := Info{
		Path:     path,
		Checksum: Checksum(data),
		Size:     st.Size(),
		ModTime:  st.ModTime(),
	}
	idx, err := searchindex.Parse(data)
	if err != nil {
		return nil, info, fmt.Errorf("parsing %s: %w", path, err)
	}
	return idx, info, nil
}

func Checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
