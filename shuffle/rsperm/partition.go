package rsperm

// UnsortedRow records, for one item at one level before partitioning, the
// bookkeeping needed to prove the stable zero-before-one reordering
// in-circuit via a paired grand-product check.
type UnsortedRow struct {
	Bit               bool
	NumZerosBefore    uint16 // zeros seen earlier in this item's bucket
	NumOnesBefore     uint16 // ones seen earlier in this item's bucket
	TotalZerosInBucket uint16
	BucketLen         uint16
	Idx               uint16 // original deck index carried by this item
	NextPos           uint16 // position this item occupies after partitioning
	BucketID          uint16
}

// SortedRow records the bucket boundaries of the level's output, indexed
// by the item's new position.
type SortedRow struct {
	Idx      uint16 // original deck index at this output position
	Length   uint16 // length of the bucket this item belongs to, post-split
	BucketID uint16
}

// WitnessTrace is the complete per-level record of one RS-shuffle run,
// sufficient to verify the permutation via grand-product checks without
// re-deriving the bit matrix.
type WitnessTrace struct {
	Bits   BitMatrix
	Levels [Levels][N]UnsortedRow
	Sorted [Levels][N]SortedRow
}

// bucket describes a contiguous run of positions sharing one bucket id in
// the current level's array.
type bucket struct {
	start, length int
	id            uint16
}

// Permute runs the L-level stable zero-before-one partition driven by bits,
// returning the resulting permutation (perm[newPosition] = originalIndex)
// together with the full witness trace.
func Permute(bits BitMatrix) ([N]int, WitnessTrace) {
	trace := WitnessTrace{Bits: bits}

	// order[i] is the original deck index currently occupying position i.
	var order [N]int
	for i := range order {
		order[i] = i
	}
	buckets := []bucket{{start: 0, length: N, id: 0}}

	for level := 0; level < Levels; level++ {
		next := [N]int{}
		nextBuckets := make([]bucket, 0, len(buckets)*2)
		nextBucketIDSeq := uint16(0)

		for _, b := range buckets {
			zeros := make([]int, 0, b.length)
			ones := make([]int, 0, b.length)
			// per-position running counts within this bucket.
			zerosBefore, onesBefore := uint16(0), uint16(0)
			bitAt := make([]bool, b.length)
			for i := 0; i < b.length; i++ {
				pos := b.start + i
				item := order[pos]
				bit := bits[level][pos]
				bitAt[i] = bit
				row := UnsortedRow{
					Bit:            bit,
					NumZerosBefore: zerosBefore,
					NumOnesBefore:  onesBefore,
					Idx:            uint16(item),
					BucketID:       b.id,
				}
				if bit {
					onesBefore++
					ones = append(ones, item)
				} else {
					zerosBefore++
					zeros = append(zeros, item)
				}
				trace.Levels[level][pos] = row
			}
			totalZeros := zerosBefore
			for i := 0; i < b.length; i++ {
				pos := b.start + i
				row := trace.Levels[level][pos]
				row.TotalZerosInBucket = totalZeros
				row.BucketLen = uint16(b.length)
				if row.Bit {
					row.NextPos = uint16(b.start) + totalZeros + row.NumOnesBefore
				} else {
					row.NextPos = uint16(b.start) + row.NumZerosBefore
				}
				trace.Levels[level][pos] = row
			}

			merged := append(append([]int{}, zeros...), ones...)
			for i, item := range merged {
				next[b.start+i] = item
			}

			if len(zeros) > 0 {
				nextBuckets = append(nextBuckets, bucket{start: b.start, length: len(zeros), id: nextBucketIDSeq})
				nextBucketIDSeq++
			}
			if len(ones) > 0 {
				nextBuckets = append(nextBuckets, bucket{start: b.start + len(zeros), length: len(ones), id: nextBucketIDSeq})
				nextBucketIDSeq++
			}
		}

		for _, b := range nextBuckets {
			for i := 0; i < b.length; i++ {
				pos := b.start + i
				trace.Sorted[level][pos] = SortedRow{
					Idx:      uint16(next[pos]),
					Length:   uint16(b.length),
					BucketID: b.id,
				}
			}
		}

		order = next
		buckets = nextBuckets
	}

	return order, trace
}

// ExtractPermutation returns the permutation recorded by the final level of
// a witness trace: perm[newPosition] = originalDeckIndex.
func (t *WitnessTrace) ExtractPermutation() [N]int {
	var perm [N]int
	for pos := 0; pos < N; pos++ {
		perm[pos] = int(t.Sorted[Levels-1][pos].Idx)
	}
	return perm
}
