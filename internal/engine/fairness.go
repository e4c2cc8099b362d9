package engine

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// IndexMode selects how a digest is reduced to a cup position.
type IndexMode int

const (
	// IndexModulo takes the first 4 digest bytes mod the cup count. This is
	// what v1 commitments were verified with; for cup counts that don't
	// divide 2^32 it carries a bias below 2^-29, accepted for counts up to 7.
	IndexModulo IndexMode = iota
	// IndexRejection discards 4-byte windows at or above the largest
	// multiple of the cup count, giving exact uniformity.
	IndexRejection
)

func (m IndexMode) String() string {
	switch m {
	case IndexModulo:
		return "modulo"
	case IndexRejection:
		return "rejection"
	default:
		return "unknown"
	}
}

// ParseIndexMode maps a config string onto an IndexMode.
func ParseIndexMode(s string) (IndexMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "modulo":
		return IndexModulo, nil
	case "rejection":
		return IndexRejection, nil
	default:
		return 0, fmt.Errorf("engine: unknown index mode %q", s)
	}
}

// Fairness derives and commits to game outcomes. It owns the injected
// entropy source; everything else it does is a pure function of its inputs.
type Fairness struct {
	entropy io.Reader
	hasher  Hasher
	mode    IndexMode
}

// Option configures a Fairness.
type Option func(*Fairness)

// WithIndexMode switches the position derivation.
func WithIndexMode(mode IndexMode) Option {
	return func(f *Fairness) { f.mode = mode }
}

// WithHasher overrides SHA-256. Hashers only come from NewHasher, so a
// non-cryptographic digest can't get here.
func WithHasher(h Hasher) Option {
	return func(f *Fairness) { f.hasher = h }
}

// NewFairness binds the engine to a secure random source. A nil source
// fails immediately instead of at the first seed.
func NewFairness(entropy io.Reader, opts ...Option) (*Fairness, error) {
	if entropy == nil {
		return nil, fmt.Errorf("%w: no random source configured", ErrEntropyUnavailable)
	}
	f := &Fairness{entropy: entropy}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Mode returns the configured index mode.
func (f *Fairness) Mode() IndexMode {
	return f.mode
}

// DeathCupIndex returns the death cup position for one round using v1
// derivation: SHA-256 of seed+"-row"+roundIndex, first 4 bytes big-endian,
// mod totalCups.
func DeathCupIndex(seed Seed, roundIndex, totalCups int) int {
	return deathCupIndex(Hasher{}, IndexModulo, seed, roundIndex, totalCups)
}

// DeathCupIndexMode is DeathCupIndex with an explicit index mode.
func DeathCupIndexMode(seed Seed, roundIndex, totalCups int, mode IndexMode) int {
	return deathCupIndex(Hasher{}, mode, seed, roundIndex, totalCups)
}

// DeathCupIndex derives a position with the engine's hasher and mode.
func (f *Fairness) DeathCupIndex(seed Seed, roundIndex, totalCups int) int {
	return deathCupIndex(f.hasher, f.mode, seed, roundIndex, totalCups)
}

// GenerateAllDeathCups derives every round of layout, each from its own digest.
func GenerateAllDeathCups(seed Seed, layout Layout) []DeathCup {
	return generateAllDeathCups(Hasher{}, IndexModulo, seed, layout)
}

// GenerateAllDeathCups derives every round of layout with the engine's settings.
func (f *Fairness) GenerateAllDeathCups(seed Seed, layout Layout) []DeathCup {
	return generateAllDeathCups(f.hasher, f.mode, seed, layout)
}

func generateAllDeathCups(h Hasher, mode IndexMode, seed Seed, layout Layout) []DeathCup {
	cups := make([]DeathCup, len(layout))
	for i, r := range layout {
		cups[i] = DeathCup{
			Round:     i,
			Position:  deathCupIndex(h, mode, seed, i, r.Cups),
			TotalCups: r.Cups,
		}
	}
	return cups
}

func deathCupIndex(h Hasher, mode IndexMode, seed Seed, roundIndex, totalCups int) int {
	if totalCups <= 1 {
		return 0
	}
	// Counts above 2^32 must not be narrowed: every 32-bit window is
	// already in range and the modulo leaves it as is.
	n := uint64(totalCups)
	if mode != IndexRejection {
		sum := h.Sum(rowMessage(seed, roundIndex))
		return int(uint64(binary.BigEndian.Uint32(sum[:4])) % n)
	}

	stream := newRowStream(h, seed, roundIndex)
	if n >= windowSpace {
		return int(stream.NextUint32())
	}
	limit := rejectionLimit(n)
	for {
		v := uint64(stream.NextUint32())
		if v < limit {
			return int(v % n)
		}
	}
}

// windowSpace is the number of values a 4-byte window can take.
const windowSpace = uint64(1) << 32

// rejectionLimit is the largest multiple of n not exceeding 2^32, for
// 0 < n <= 2^32.
func rejectionLimit(n uint64) uint64 {
	return windowSpace / n * n
}

func beUint32(b [4]byte) uint32 {
	return binary.BigEndian.Uint32(b[:])
}

func rowMessage(seed Seed, roundIndex int) []byte {
	return []byte(string(seed) + "-row" + strconv.Itoa(roundIndex))
}

// rowStream walks 4-byte windows of a round's digest chain. The first
// digest is the v1 row digest; later ones append ":k".
type rowStream struct {
	hasher     Hasher
	seed       Seed
	roundIndex int
	counter    int
	pos        int
	buffer     [DigestSize]byte
}

func newRowStream(h Hasher, seed Seed, roundIndex int) *rowStream {
	rs := &rowStream{hasher: h, seed: seed, roundIndex: roundIndex}
	rs.generate()
	return rs
}

func (rs *rowStream) NextUint32() uint32 {
	if rs.pos+4 > DigestSize {
		rs.counter++
		rs.pos = 0
		rs.generate()
	}
	v := binary.BigEndian.Uint32(rs.buffer[rs.pos : rs.pos+4])
	rs.pos += 4
	return v
}

func (rs *rowStream) generate() {
	msg := rowMessage(rs.seed, rs.roundIndex)
	if rs.counter > 0 {
		msg = append(msg, ':')
		msg = strconv.AppendInt(msg, int64(rs.counter), 10)
	}
	rs.buffer = rs.hasher.Sum(msg)
}

// commitmentPayload field order is part of the protocol.
type commitmentPayload struct {
	Version string  `json:"version"`
	Rows    []Round `json:"rows"`
	Seed    Seed    `json:"seed"`
}

// CanonicalPayload returns the exact bytes a commitment is computed over:
// compact JSON, keys in version/rows/seed order, no HTML escaping and no
// trailing newline. It panics if the payload can't be encoded, which can
// only happen through a protocol violation.
func CanonicalPayload(version string, layout Layout, seed Seed) []byte {
	rows := []Round(layout)
	if rows == nil {
		rows = []Round{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(commitmentPayload{Version: version, Rows: rows, Seed: seed}); err != nil {
		panic(fmt.Sprintf("engine: canonical payload: %v", err))
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n"))
}

// CommitmentHash binds version, layout and seed: "0x" + hex(sha256(payload)).
func CommitmentHash(version string, layout Layout, seed Seed) Commitment {
	return commitmentHash(Hasher{}, version, layout, seed)
}

// CommitmentHash commits with the engine's hasher.
func (f *Fairness) CommitmentHash(version string, layout Layout, seed Seed) Commitment {
	return commitmentHash(f.hasher, version, layout, seed)
}

func commitmentHash(h Hasher, version string, layout Layout, seed Seed) Commitment {
	payload := CanonicalPayload(version, layout, seed)
	return Commitment("0x" + h.HexSum(payload))
}

// Verify recomputes the commitment and compares it case-insensitively.
// A mismatch is a false result, never an error.
func Verify(commitment Commitment, version string, layout Layout, seed Seed) bool {
	return strings.EqualFold(string(CommitmentHash(version, layout, seed)), string(commitment))
}

// Verify checks a commitment with the engine's hasher.
func (f *Fairness) Verify(commitment Commitment, version string, layout Layout, seed Seed) bool {
	return strings.EqualFold(string(f.CommitmentHash(version, layout, seed)), string(commitment))
}
