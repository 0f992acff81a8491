package mining

import (
	"encoding/binary"
	"slices"
	"strings"

	"github.com/RoaringBitmap/roaring"
	"github.com/spaolacci/murmur3"

	"github.com/logflow/procmine/pkg/progress"
	"github.com/logflow/procmine/pkg/trace"
)

// PlaceholderTimestamp is the timestamp carried by every activity of a
// variant representative. Variants describe ordering, not timing.
const PlaceholderTimestamp = "0"

// Signature is a 128-bit murmur3 digest of an activity name sequence.
// Equal sequences share a signature; a shared signature alone does not prove
// equality.
type Signature [2]uint64

// SignatureOf hashes the names of t in order. Each name is length-prefixed
// so that ["ab","c"] and ["a","bc"] digest differently.
func SignatureOf(t *trace.Trace) Signature {
	h := murmur3.New128()
	var n [8]byte
	for _, a := range t.Activities() {
		binary.LittleEndian.PutUint64(n[:], uint64(len(a.Name)))
		h.Write(n[:])
		h.Write([]byte(a.Name))
	}
	h1, h2 := h.Sum128()
	return Signature{h1, h2}
}

// Variant is one distinct activity sequence.
type Variant struct {
	// Representative is the trace stored in the variant store. Its id is the
	// id of the first source trace seen with this sequence.
	Representative *trace.Trace

	// Members holds the iteration ordinals of the source traces that follow
	// this sequence.
	Members *roaring.Bitmap

	Signature Signature
}

// Count returns the number of source traces following the variant.
func (v *Variant) Count() int {
	return int(v.Members.GetCardinality())
}

// Names returns the activity sequence.
func (v *Variant) Names() []string {
	return v.Representative.Names()
}

func (v *Variant) String() string {
	return strings.Join(v.Names(), " -> ")
}

// VariantReport is the result of a variant analysis.
type VariantReport struct {
	// Store holds one representative trace per variant.
	Store *trace.Store

	// Variants sorted by Count descending; ties keep discovery order.
	Variants []*Variant

	// Traces is the number of source traces analyzed.
	Traces int
}

// Share returns the fraction of source traces following v.
func (r *VariantReport) Share(v *Variant) float64 {
	if r.Traces == 0 {
		return 0
	}
	return float64(v.Count()) / float64(r.Traces)
}

// Covering returns the smallest number of leading variants whose traces make
// up at least ratio of all traces.
func (r *VariantReport) Covering(ratio float64) int {
	if r.Traces == 0 {
		return 0
	}
	covered := 0
	for i, v := range r.Variants {
		covered += v.Count()
		if float64(covered)/float64(r.Traces) >= ratio {
			return i + 1
		}
	}
	return len(r.Variants)
}

// VariantOption configures a variant analysis.
type VariantOption func(*variantConfig)

type variantConfig struct {
	checkpoints int
	storeOpts   []trace.Option
}

// WithVariantCheckpoints bounds the number of progress reports.
func WithVariantCheckpoints(n int) VariantOption {
	return func(c *variantConfig) {
		c.checkpoints = n
	}
}

// WithVariantStoreOptions configures the variant store.
func WithVariantStoreOptions(opts ...trace.Option) VariantOption {
	return func(c *variantConfig) {
		c.storeOpts = append(c.storeOpts, opts...)
	}
}

// variantIndex groups candidate variants by signature. Candidates sharing a
// signature are confirmed by comparing names.
type variantIndex struct {
	bySignature map[Signature][]*Variant
	variants    []*Variant
	store       *trace.Store
}

func (ix *variantIndex) find(t *trace.Trace, sig Signature) *Variant {
	for _, v := range ix.bySignature[sig] {
		if v.Representative.SameSequence(t) {
			return v
		}
	}
	return nil
}

func (ix *variantIndex) add(t *trace.Trace, sig Signature) *Variant {
	var rep *trace.Trace
	for i, a := range t.Activities() {
		if i == 0 {
			rep, _ = ix.store.Append(t.ID(), trace.Activity{Name: a.Name, Timestamp: PlaceholderTimestamp})
			continue
		}
		rep.Append(a.Name, PlaceholderTimestamp)
	}
	v := &Variant{Representative: rep, Members: roaring.New(), Signature: sig}
	ix.bySignature[sig] = append(ix.bySignature[sig], v)
	ix.variants = append(ix.variants, v)
	return v
}

// AnalyzeVariants partitions the traces of src by activity name sequence.
// progress receives bounded updates while src is walked; it may be nil.
func AnalyzeVariants(src *trace.Store, fn progress.Func, opts ...VariantOption) *VariantReport {
	cfg := variantConfig{checkpoints: progress.DefaultCheckpoints}
	for _, opt := range opts {
		opt(&cfg)
	}

	ix := &variantIndex{
		bySignature: make(map[Signature][]*Variant),
		store:       trace.NewStore(cfg.storeOpts...),
	}
	ticker := progress.NewTicker(fn, src.Len(), cfg.checkpoints)

	ordinal := 0
	for t := range src.All() {
		if t.Len() > 0 {
			sig := SignatureOf(t)
			v := ix.find(t, sig)
			if v == nil {
				v = ix.add(t, sig)
			}
			v.Members.Add(uint32(ordinal))
		}
		ordinal++
		ticker.Tick(ordinal)
	}
	ticker.Done(ordinal)

	sorted := slices.Clone(ix.variants)
	slices.SortStableFunc(sorted, func(a, b *Variant) int {
		return b.Count() - a.Count()
	})

	return &VariantReport{
		Store:    ix.store,
		Variants: sorted,
		Traces:   src.Len(),
	}
}

// ExtractVariants builds a store holding one trace per distinct activity
// sequence of src. The source store is not modified.
func ExtractVariants(src *trace.Store, fn progress.Func, opts ...VariantOption) *trace.Store {
	return AnalyzeVariants(src, fn, opts...).Store
}
