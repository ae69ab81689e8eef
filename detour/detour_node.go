package detour

import "github.com/gorustyt/navmeshmgr/common"

const (
	DT_NODE_OPEN            = 0x01
	DT_NODE_CLOSED          = 0x02
	DT_NODE_PARENT_DETACHED = 0x04 // parent of the node is not adjacent. Found using raycast.
)

type DtNodeIndex uint32

const (
	DT_NODE_PARENT_BITS = 24
	DT_NULL_IDX         = ^DtNodeIndex(0)
)

type DtNode struct {
	Pos   [3]float32 ///< Position of the node.
	Cost  float32    ///< Cost from previous node to current node.
	Total float32    ///< Cost up to the node.
	Pidx  uint32     ///< Index to parent node.
	Flags uint32     ///< Node flags. A combination of DtNodeFlags.
	Id    DtPolyRef  ///< Polygon ref the node corresponds to.
}

func dtHashRef(a DtPolyRef) uint32 {
	a += ^(a << 15)
	a ^= a >> 10
	a += a << 3
	a ^= a >> 6
	a += ^(a << 11)
	a ^= a >> 16
	return uint32(a)
}

// DtNodePool is the fixed-capacity search scratch space owned by a query.
type DtNodePool struct {
	m_nodes     []DtNode
	m_first     []DtNodeIndex
	m_next      []DtNodeIndex
	m_maxNodes  int32
	m_hashSize  int32
	m_nodeCount int32
}

func NewDtNodePool(maxNodes, hashSize int32) *DtNodePool {
	common.AssertTrue(common.NextPow2(uint32(hashSize)) == uint32(hashSize), "node pool hash size must be a power of two")
	// pidx is special as 0 means "none" and 1 is the first node. For that reason
	// we have 1 fewer nodes available than the number of values it can contain.
	common.AssertTrue(maxNodes > 0 && maxNodes <= (1<<DT_NODE_PARENT_BITS)-1, "node pool size out of range")
	p := &DtNodePool{
		m_maxNodes: maxNodes,
		m_hashSize: hashSize,
		m_nodes:    make([]DtNode, maxNodes),
		m_next:     make([]DtNodeIndex, maxNodes),
		m_first:    make([]DtNodeIndex, hashSize),
	}
	p.Clear()
	return p
}

func (p *DtNodePool) Clear() {
	for i := range p.m_first {
		p.m_first[i] = DT_NULL_IDX
	}
	p.m_nodeCount = 0
}

func (p *DtNodePool) GetMaxNodes() int32  { return p.m_maxNodes }
func (p *DtNodePool) GetHashSize() int32  { return p.m_hashSize }
func (p *DtNodePool) GetNodeCount() int32 { return p.m_nodeCount }

func (p *DtNodePool) FindNode(id DtPolyRef) *DtNode {
	bucket := dtHashRef(id) & uint32(p.m_hashSize-1)
	for i := p.m_first[bucket]; i != DT_NULL_IDX; i = p.m_next[i] {
		if p.m_nodes[i].Id == id {
			return &p.m_nodes[i]
		}
	}
	return nil
}

// GetNode returns the node for id, allocating it when missing. It returns
// nil once the pool is exhausted.
func (p *DtNodePool) GetNode(id DtPolyRef) *DtNode {
	if n := p.FindNode(id); n != nil {
		return n
	}
	if p.m_nodeCount >= p.m_maxNodes {
		return nil
	}
	i := DtNodeIndex(p.m_nodeCount)
	p.m_nodeCount++

	node := &p.m_nodes[i]
	*node = DtNode{Id: id}

	bucket := dtHashRef(id) & uint32(p.m_hashSize-1)
	p.m_next[i] = p.m_first[bucket]
	p.m_first[bucket] = i
	return node
}
