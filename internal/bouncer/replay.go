package bouncer

// ReplayLog retains the most recent upstream bytes so a resuming client can
// be caught up from its acknowledged offset. Retention is capped: once a
// client falls further behind than the cap, the oldest bytes are gone and a
// resume replays only what remains.
//
// Not synchronized; the owning Session serializes access.
type ReplayLog struct {
	limit    int
	chunks   [][]byte
	retained int
	total    uint64
}

func NewReplayLog(limit int) *ReplayLog {
	return &ReplayLog{limit: limit}
}

// Append retains a copy of data, evicting the oldest chunks once the cap is
// exceeded.
func (l *ReplayLog) Append(data []byte) {
	if len(data) == 0 {
		return
	}
	chunk := make([]byte, len(data))
	copy(chunk, data)
	l.chunks = append(l.chunks, chunk)
	l.retained += len(chunk)
	l.total += uint64(len(chunk))
	for l.retained > l.limit && len(l.chunks) > 0 {
		l.retained -= len(l.chunks[0])
		l.chunks = l.chunks[1:]
	}
}

// Total is the lifetime byte count appended, the offset space clients ack in.
func (l *ReplayLog) Total() uint64 {
	return l.total
}

// Retained is the byte count currently held for replay.
func (l *ReplayLog) Retained() int {
	return l.retained
}

// Ack drops chunks fully delivered at or below offset.
func (l *ReplayLog) Ack(offset uint64) {
	start := l.total - uint64(l.retained)
	for len(l.chunks) > 0 && start+uint64(len(l.chunks[0])) <= offset {
		start += uint64(len(l.chunks[0]))
		l.retained -= len(l.chunks[0])
		l.chunks = l.chunks[1:]
	}
}

// ReplayFrom returns retained data from offset onward, oldest first. Offsets
// older than the retained window replay the whole window; offsets at or past
// Total replay nothing.
func (l *ReplayLog) ReplayFrom(offset uint64) [][]byte {
	start := l.total - uint64(l.retained)
	var skip uint64
	if offset > start {
		skip = offset - start
	}
	out := make([][]byte, 0, len(l.chunks))
	for _, chunk := range l.chunks {
		n := uint64(len(chunk))
		if skip >= n {
			skip -= n
			continue
		}
		out = append(out, chunk[skip:])
		skip = 0
	}
	return out
}
