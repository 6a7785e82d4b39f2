package navigation

import (
	"container/heap"
	"math"

	"github.com/Nootest/3DShooting/internal/vec"
)

// MaxSearchSteps ограничивает число раскрытых узлов одного поиска
const MaxSearchSteps = 1000

// Stats - счётчики поиска пути
type Stats struct {
	Searches      uint64 // Всего запросов
	Found         uint64 // Успешных
	Failed        uint64 // Пути нет (закрыто, исчерпан бюджет или недостижимо)
	BudgetHits    uint64 // Из них по бюджету
	ExpandedNodes uint64 // Суммарно раскрыто узлов
}

type neighbor struct {
	dx, dy   int
	cost     float64
	diagonal bool
}

var neighborOffsets = [...]neighbor{
	{dx: 0, dy: -1, cost: 1},
	{dx: 1, dy: 0, cost: 1},
	{dx: 0, dy: 1, cost: 1},
	{dx: -1, dy: 0, cost: 1},
	{dx: 1, dy: -1, cost: math.Sqrt2, diagonal: true},
	{dx: 1, dy: 1, cost: math.Sqrt2, diagonal: true},
	{dx: -1, dy: 1, cost: math.Sqrt2, diagonal: true},
	{dx: -1, dy: -1, cost: math.Sqrt2, diagonal: true},
}

// Heuristic - октильное расстояние
func Heuristic(a, b vec.Vec2) float64 {
	ix, iy := a.Delta(b)
	dx, dy := float64(ix), float64(iy)
	return (dx + dy) + (math.Sqrt2-2)*math.Min(dx, dy)
}

// canTraverseDiagonal запрещает срезать угол, если закрыта хотя бы одна из
// двух ортогональных клеток
func (g *Grid) canTraverseDiagonal(from vec.Vec2, n neighbor) bool {
	if !n.diagonal {
		return true
	}
	return g.IsWalkable(from.Offset(n.dx, 0)) && g.IsWalkable(from.Offset(0, n.dy))
}

type pathNode struct {
	cell   vec.Vec2
	g      float64
	f      float64
	index  int
	parent *pathNode
}

type pathQueue []*pathNode

func (pq pathQueue) Len() int { return len(pq) }

func (pq pathQueue) Less(i, j int) bool { return pq[i].f < pq[j].f }

func (pq pathQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *pathQueue) Push(x any) {
	item := x.(*pathNode)
	item.index = len(*pq)
	*pq = append(*pq, item)
}

func (pq *pathQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*pq = old[:n-1]
	return item
}

// FindPath ищет путь A* из start в goal и возвращает центры клеток на высоте пути.
// Закрытые start/goal, исчерпание бюджета или недостижимость дают nil.
// start == goal даёт путь из одной точки.
func (g *Grid) FindPath(start, goal vec.Vec2) []vec.Vec3Float {
	cells := g.FindCells(start, goal)
	if cells == nil {
		return nil
	}
	path := make([]vec.Vec3Float, len(cells))
	for i, c := range cells {
		path[i] = g.CellToWorld(c)
	}
	return path
}

// FindCells - то же, что FindPath, но возвращает клетки
func (g *Grid) FindCells(start, goal vec.Vec2) []vec.Vec2 {
	if g == nil {
		return nil
	}
	g.stats.Searches++
	if !g.IsWalkable(start) || !g.IsWalkable(goal) {
		g.stats.Failed++
		return nil
	}

	open := &pathQueue{}
	heap.Init(open)
	heap.Push(open, &pathNode{cell: start, f: Heuristic(start, goal)})

	best := map[vec.Vec2]*pathNode{start: (*open)[0]}
	closed := make(map[vec.Vec2]struct{})

	steps := 0
	for open.Len() > 0 && steps < MaxSearchSteps {
		steps++
		current := heap.Pop(open).(*pathNode)
		if _, done := closed[current.cell]; done {
			continue
		}

		if current.cell == goal {
			g.stats.Found++
			g.stats.ExpandedNodes += uint64(steps)
			return reconstructPath(current)
		}
		closed[current.cell] = struct{}{}

		for _, n := range neighborOffsets {
			next := current.cell.Offset(n.dx, n.dy)
			if !g.IsWalkable(next) {
				continue
			}
			if _, done := closed[next]; done {
				continue
			}
			if !g.canTraverseDiagonal(current.cell, n) {
				continue
			}

			tentative := current.g + n.cost
			if existing, ok := best[next]; ok && tentative >= existing.g {
				continue
			}
			node := &pathNode{
				cell:   next,
				g:      tentative,
				f:      tentative + Heuristic(next, goal),
				parent: current,
			}
			best[next] = node
			heap.Push(open, node)
		}
	}

	g.stats.Failed++
	g.stats.ExpandedNodes += uint64(steps)
	if steps >= MaxSearchSteps {
		g.stats.BudgetHits++
	}
	return nil
}

// reconstructPath идёт по родителям от цели к старту и разворачивает результат
func reconstructPath(node *pathNode) []vec.Vec2 {
	var cells []vec.Vec2
	for n := node; n != nil; n = n.parent {
		cells = append(cells, n.cell)
	}
	for i, j := 0, len(cells)-1; i < j; i, j = i+1, j-1 {
		cells[i], cells[j] = cells[j], cells[i]
	}
	return cells
}
