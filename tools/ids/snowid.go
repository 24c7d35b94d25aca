package ids

import (
	"strconv"
	"sync"
	"time"
)

// Snowflake layout: 41 bits of milliseconds since epoch, 10 bits of node,
// 12 bits of sequence. Ids are positive and increase per node.
const (
	nodeBits = 10
	seqBits  = 12
	maxNode  = 1<<nodeBits - 1
	seqMask  = 1<<seqBits - 1
)

var epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// Node generates ids for one gateway/data node.
type Node struct {
	mu     sync.Mutex
	id     int64
	seq    int64
	lastMS int64
	now    func() time.Time
}

func NewNode(id int64) *Node {
	if id < 0 || id > maxNode {
		id = 1
	}
	return &Node{id: id, now: time.Now}
}

func (n *Node) Next() int64 {
	n.mu.Lock()
	defer n.mu.Unlock()

	for {
		ms := n.now().Sub(epoch).Milliseconds()
		if ms < n.lastMS {
			// clock went backwards, wait it out
			time.Sleep(time.Duration(n.lastMS-ms) * time.Millisecond)
			continue
		}
		if ms == n.lastMS {
			n.seq = (n.seq + 1) & seqMask
			if n.seq == 0 {
				for ms <= n.lastMS {
					ms = n.now().Sub(epoch).Milliseconds()
				}
			}
		} else {
			n.seq = 0
		}
		n.lastMS = ms
		return ms<<(nodeBits+seqBits) | n.id<<seqBits | n.seq
	}
}

var (
	defaultMu   sync.RWMutex
	defaultNode = NewNode(1)
)

// SetNodeID replaces the process-wide generator; call once from main.
func SetNodeID(id int64) {
	defaultMu.Lock()
	defaultNode = NewNode(id)
	defaultMu.Unlock()
}

func Generate() int64 {
	defaultMu.RLock()
	n := defaultNode
	defaultMu.RUnlock()
	return n.Next()
}

func GenerateString() string {
	return strconv.FormatInt(Generate(), 10)
}
