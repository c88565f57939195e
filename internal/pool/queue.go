package pool

// idQueue: кольцевая FIFO-очередь идентификаторов.
// Память выделяется только при росте сверх текущей ёмкости.
type idQueue struct {
	buf  []TileID
	head int
	n    int
}

func newIDQueue(capacity int) idQueue {
	if capacity < 1 {
		capacity = 1
	}
	return idQueue{buf: make([]TileID, capacity)}
}

func (q *idQueue) len() int { return q.n }

func (q *idQueue) push(id TileID) {
	if q.n == len(q.buf) {
		q.grow()
	}
	q.buf[(q.head+q.n)%len(q.buf)] = id
	q.n++
}

func (q *idQueue) pop() (TileID, bool) {
	if q.n == 0 {
		return 0, false
	}
	id := q.buf[q.head]
	q.head = (q.head + 1) % len(q.buf)
	q.n--
	return id, true
}

func (q *idQueue) grow() {
	buf := make([]TileID, len(q.buf)*2)
	for i := 0; i < q.n; i++ {
		buf[i] = q.buf[(q.head+i)%len(q.buf)]
	}
	q.buf = buf
	q.head = 0
}
