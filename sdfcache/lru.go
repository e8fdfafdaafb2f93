package sdfcache

// lruNode is a node in a doubly-linked LRU list. It carries the key for
// O(1) deletion from the shard map and the value so the map needs no
// separate entry type.
type lruNode struct {
	key   Key
	value []byte
	prev  *lruNode
	next  *lruNode
}

// lruList is a doubly-linked list, most recently used at the head.
// The list is not thread-safe; callers must handle synchronization.
type lruList struct {
	head  *lruNode
	tail  *lruNode
	len   int
	bytes int
}

// pushFront adds a new node at the front and returns it.
func (l *lruList) pushFront(key Key, value []byte) *lruNode {
	node := &lruNode{key: key, value: value}
	l.link(node)
	return node
}

// moveToFront marks node as most recently used.
func (l *lruList) moveToFront(node *lruNode) {
	if node == l.head {
		return
	}
	l.unlink(node)
	l.link(node)
}

// removeOldest unlinks and returns the least recently used node.
func (l *lruList) removeOldest() *lruNode {
	node := l.tail
	if node != nil {
		l.unlink(node)
	}
	return node
}

func (l *lruList) clear() {
	l.head = nil
	l.tail = nil
	l.len = 0
	l.bytes = 0
}

func (l *lruList) link(node *lruNode) {
	node.prev = nil
	node.next = l.head
	if l.head != nil {
		l.head.prev = node
	}
	l.head = node
	if l.tail == nil {
		l.tail = node
	}
	l.len++
	l.bytes += len(node.value)
}

func (l *lruList) unlink(node *lruNode) {
	if node.prev != nil {
		node.prev.next = node.next
	} else {
		l.head = node.next
	}
	if node.next != nil {
		node.next.prev = node.prev
	} else {
		l.tail = node.prev
	}
	node.prev = nil
	node.next = nil
	l.len--
	l.bytes -= len(node.value)
}
