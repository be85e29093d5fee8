package transform

import (
	"iter"
	"log"

	"github.com/kamstrup/intmap"
	"github.com/plus3/spherical/ecs"
)

// Node is the component view the propagation pass walks.
type Node struct {
	ecs.Entity
	Local    *Transform
	Global   *GlobalTransform
	Parent   *Parent   `ecs:"optional"`
	Children *Children `ecs:"optional"`
}

type stagedPose struct {
	global *GlobalTransform
	value  GlobalTransform
}

// Propagator recomputes GlobalTransform from Transform for a snapshot of
// nodes. Its buffers are reused between runs.
type Propagator struct {
	Log *log.Logger

	// Dangling lists the nodes of the last run whose Parent did not resolve
	// to a live node. They were propagated as roots.
	Dangling []ecs.Entity
	// Stale lists the nodes of the last run that were reached through their
	// Parent chain because the parent's Children did not list them.
	Stale []ecs.Entity

	nodes  []Node
	index  *intmap.Map[ecs.Entity, int]
	staged *intmap.Map[ecs.Entity, int]
	poses  []stagedPose
	stack  []ecs.Entity
	path   []ecs.Entity
	onPath *intmap.Map[ecs.Entity, int]
}

func (p *Propagator) logger() *log.Logger {
	if p.Log != nil {
		return p.Log
	}
	return log.Default()
}

func (p *Propagator) reset() {
	if p.index == nil {
		p.index = intmap.New[ecs.Entity, int](64)
		p.staged = intmap.New[ecs.Entity, int](64)
		p.onPath = intmap.New[ecs.Entity, int](16)
	}
	p.index.Clear()
	p.staged.Clear()
	p.nodes = p.nodes[:0]
	p.poses = p.poses[:0]
	p.Dangling = p.Dangling[:0]
	p.Stale = p.Stale[:0]
}

// Run walks the hierarchy from every root, parents before children, and
// writes each node's world pose. Local poses are read once at the start of
// the walk. If any Parent chain loops, Run returns a *CyclicHierarchyError
// and writes no GlobalTransform at all.
func (p *Propagator) Run(nodes iter.Seq[Node]) error {
	p.reset()

	for n := range nodes {
		p.index.Put(n.Entity, len(p.nodes))
		p.nodes = append(p.nodes, n)
	}

	for i := range p.nodes {
		n := &p.nodes[i]
		if n.Parent == nil {
			p.walk(n.Entity, FromLocal(*n.Local))
			continue
		}
		if !p.index.Has(n.Parent.Entity) {
			p.Dangling = append(p.Dangling, n.Entity)
			p.walk(n.Entity, FromLocal(*n.Local))
		}
	}

	for i := range p.nodes {
		if p.staged.Has(p.nodes[i].Entity) {
			continue
		}
		if err := p.resolveChain(p.nodes[i].Entity); err != nil {
			return err
		}
	}

	for _, pose := range p.poses {
		*pose.global = pose.value
	}
	return nil
}

func (p *Propagator) node(e ecs.Entity) *Node {
	i, ok := p.index.Get(e)
	if !ok {
		return nil
	}
	return &p.nodes[i]
}

func (p *Propagator) stage(n *Node, value GlobalTransform) {
	p.staged.Put(n.Entity, len(p.poses))
	p.poses = append(p.poses, stagedPose{global: n.Global, value: value})
}

func (p *Propagator) stagedValue(e ecs.Entity) GlobalTransform {
	i, _ := p.staged.Get(e)
	return p.poses[i].value
}

// walk stages root and then its subtree depth first, visiting Children in
// order. A child is followed only when its Parent points back.
func (p *Propagator) walk(root ecs.Entity, rootPose GlobalTransform) {
	p.stage(p.node(root), rootPose)

	p.stack = append(p.stack[:0], root)
	for len(p.stack) > 0 {
		last := len(p.stack) - 1
		id := p.stack[last]
		p.stack = p.stack[:last]

		n := p.node(id)
		if n.Children == nil {
			continue
		}
		parentPose := p.stagedValue(id)

		// push in reverse so the first child is visited first
		for i := len(n.Children.Entities) - 1; i >= 0; i-- {
			childID := n.Children.Entities[i]
			child := p.node(childID)
			if child == nil || child.Parent == nil || child.Parent.Entity != id {
				continue
			}
			if p.staged.Has(childID) {
				continue
			}
			p.stage(child, parentPose.MulTransform(*child.Local))
			p.stack = append(p.stack, childID)
		}
	}
}

// resolveChain handles a node no root reached. Following Parent links must
// end at a staged node, otherwise the links form a cycle.
func (p *Propagator) resolveChain(start ecs.Entity) error {
	p.path = p.path[:0]
	p.onPath.Clear()

	id := start
	for !p.staged.Has(id) {
		if at, ok := p.onPath.Get(id); ok {
			cycle := append([]ecs.Entity(nil), p.path[at:]...)
			return &CyclicHierarchyError{Entities: cycle}
		}
		p.onPath.Put(id, len(p.path))
		p.path = append(p.path, id)
		id = p.node(id).Parent.Entity
	}

	parent := id
	for i := len(p.path) - 1; i >= 0; i-- {
		n := p.node(p.path[i])
		if p.staged.Has(n.Entity) {
			parent = n.Entity
			continue
		}
		p.logger().Printf("warning: entity %s is missing from the Children of its parent %s", n.Entity, parent)
		p.Stale = append(p.Stale, n.Entity)
		p.walk(n.Entity, p.stagedValue(parent).MulTransform(*n.Local))
		parent = n.Entity
	}
	return nil
}

// Propagate runs a single propagation pass over every entity in storage
// that has both a Transform and a GlobalTransform.
func Propagate(storage *ecs.Storage) error {
	var p Propagator
	return p.Run(ecs.NewView[Node](storage).Values())
}

// PropagateSystem runs the propagation pass once per tick. Register it after
// ParentUpdateSystem and before anything that reads GlobalTransform.
type PropagateSystem struct {
	Nodes ecs.Query[Node]
	Log   *log.Logger

	// LastDangling lists the entities treated as roots in the last tick
	// because their Parent did not resolve.
	LastDangling []ecs.Entity

	propagator Propagator
}

func (s *PropagateSystem) Execute(frame *ecs.UpdateFrame) error {
	s.propagator.Log = s.Log
	err := s.propagator.Run(s.Nodes.Iter())
	s.LastDangling = append(s.LastDangling[:0], s.propagator.Dangling...)
	return err
}
