package trace

// DefaultPrefixScale drops the five lowest decimal digits of a case id to form
// its bucket prefix.
const DefaultPrefixScale int64 = 100000

// PrefixIndex buckets traces by the leading digits of their case id.
// Case ids cluster by prefix in real logs, so most lookups scan one small
// bucket. If every id shares a prefix, lookups degrade to a linear scan.
type PrefixIndex struct {
	scale   int64
	buckets map[int64]*bucket

	// order lists prefixes by bucket creation time.
	order []int64
}

// bucket holds traces in insertion order; the front of the bucket is the
// last element.
type bucket struct {
	prefix int64
	traces []*Trace
}

// NewPrefixIndex creates an empty index. scale <= 0 selects DefaultPrefixScale.
func NewPrefixIndex(scale int64) *PrefixIndex {
	if scale <= 0 {
		scale = DefaultPrefixScale
	}
	return &PrefixIndex{
		scale:   scale,
		buckets: make(map[int64]*bucket),
	}
}

// Scale returns the divisor used to compute prefixes.
func (ix *PrefixIndex) Scale() int64 {
	return ix.scale
}

// Prefix returns floor(id / scale).
func (ix *PrefixIndex) Prefix(id int64) int64 {
	p := id / ix.scale
	if id%ix.scale != 0 && id < 0 {
		p--
	}
	return p
}

// Find returns the trace with the given id.
func (ix *PrefixIndex) Find(id int64) (*Trace, bool) {
	b, ok := ix.buckets[ix.Prefix(id)]
	if !ok {
		return nil, false
	}
	for i := len(b.traces) - 1; i >= 0; i-- {
		if b.traces[i].id == id {
			return b.traces[i], true
		}
	}
	return nil, false
}

// Insert places t at the front of its bucket, creating the bucket if needed.
// The caller guarantees t.ID() is not indexed yet.
func (ix *PrefixIndex) Insert(t *Trace) {
	prefix := ix.Prefix(t.id)
	b, ok := ix.buckets[prefix]
	if !ok {
		b = &bucket{prefix: prefix}
		ix.buckets[prefix] = b
		ix.order = append(ix.order, prefix)
	}
	b.traces = append(b.traces, t)
}

// Len returns the number of buckets.
func (ix *PrefixIndex) Len() int {
	return len(ix.buckets)
}

// Bucket returns the traces sharing prefix, front first.
func (ix *PrefixIndex) Bucket(prefix int64) []*Trace {
	b, ok := ix.buckets[prefix]
	if !ok {
		return nil
	}
	out := make([]*Trace, len(b.traces))
	for i, t := range b.traces {
		out[len(b.traces)-1-i] = t
	}
	return out
}

// BucketInfo summarizes one bucket.
type BucketInfo struct {
	Prefix int64
	Size   int
}

// Buckets lists buckets, most recently created first.
func (ix *PrefixIndex) Buckets() []BucketInfo {
	infos := make([]BucketInfo, 0, len(ix.order))
	for i := len(ix.order) - 1; i >= 0; i-- {
		b := ix.buckets[ix.order[i]]
		infos = append(infos, BucketInfo{Prefix: b.prefix, Size: len(b.traces)})
	}
	return infos
}

func (ix *PrefixIndex) reset() {
	ix.buckets = make(map[int64]*bucket)
	ix.order = nil
}
