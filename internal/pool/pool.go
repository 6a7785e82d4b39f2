package pool

// Handle адресует слот пула: младшие 32 бита - индекс, старшие - поколение.
// Поколение растёт при освобождении, поэтому устаревший хендл не трогает новый объект.
type Handle uint64

// NilHandle - пустой хендл, никогда не выдаётся пулом
const NilHandle Handle = 0

func newHandle(index, generation uint32) Handle {
	return Handle(uint64(generation)<<32 | uint64(index))
}

// Index возвращает индекс слота
func (h Handle) Index() uint32 { return uint32(h) }

// Generation возвращает поколение слота
func (h Handle) Generation() uint32 { return uint32(h >> 32) }

// Stats - счётчики пула
type Stats struct {
	Capacity  int
	Active    int
	Free      int
	Acquires  uint64
	Releases  uint64
	Grows     uint64
	Exhausted uint64 // Сколько раз свободный список оказывался пуст
}

// Pool - пул объектов фиксированного типа с переиспользованием слотов.
// Каждый слот либо активен, либо лежит в свободном списке.
// Указатели на объекты стабильны на всё время жизни пула.
// Пул не потокобезопасен: им владеет один поток симуляции.
type Pool[T any] struct {
	name        string
	items       []*T
	generations []uint32
	active      []bool
	free        []uint32
	activeCount int
	growBy      int

	stats Stats
}

// New создаёт пул с заранее выделенной ёмкостью.
// При исчерпании пул мягко растёт на growBy слотов (по умолчанию - на исходную ёмкость).
func New[T any](name string, capacity, growBy int) *Pool[T] {
	if capacity < 1 {
		capacity = 1
	}
	if growBy < 1 {
		growBy = capacity
	}
	p := &Pool[T]{
		name:   name,
		growBy: growBy,
	}
	p.grow(capacity)
	p.stats.Grows = 0
	return p
}

// Name возвращает имя пула (используется в метриках)
func (p *Pool[T]) Name() string {
	return p.name
}

func (p *Pool[T]) grow(n int) {
	start := len(p.items)
	for i := 0; i < n; i++ {
		p.items = append(p.items, new(T))
		p.generations = append(p.generations, 1)
		p.active = append(p.active, false)
	}
	// Свободный список - стек; кладём в обратном порядке, чтобы выдавать слоты по возрастанию
	for i := start + n - 1; i >= start; i-- {
		p.free = append(p.free, uint32(i))
	}
	p.stats.Grows++
}

// Acquire выдаёт обнулённый объект и его хендл
func (p *Pool[T]) Acquire() (Handle, *T) {
	if len(p.free) == 0 {
		p.stats.Exhausted++
		p.grow(p.growBy)
	}
	idx := p.free[len(p.free)-1]
	p.free = p.free[:len(p.free)-1]

	p.active[idx] = true
	p.activeCount++
	p.stats.Acquires++

	item := p.items[idx]
	var zero T
	*item = zero
	return newHandle(idx, p.generations[idx]), item
}

// Get возвращает активный объект по хендлу
func (p *Pool[T]) Get(h Handle) (*T, bool) {
	if !p.valid(h) {
		return nil, false
	}
	return p.items[h.Index()], true
}

// IsActive проверяет, что хендл указывает на активный объект
func (p *Pool[T]) IsActive(h Handle) bool {
	return p.valid(h)
}

func (p *Pool[T]) valid(h Handle) bool {
	idx := h.Index()
	if h == NilHandle || int(idx) >= len(p.items) {
		return false
	}
	return p.active[idx] && p.generations[idx] == h.Generation()
}

// Release возвращает объект в пул. Повторный вызов и устаревший хендл
// ничего не делают и возвращают false.
func (p *Pool[T]) Release(h Handle) bool {
	if !p.valid(h) {
		return false
	}
	idx := h.Index()
	p.active[idx] = false
	p.generations[idx]++
	if p.generations[idx] == 0 {
		p.generations[idx] = 1
	}
	p.free = append(p.free, idx)
	p.activeCount--
	p.stats.Releases++
	return true
}

// ReleaseAll возвращает в пул все активные объекты
func (p *Pool[T]) ReleaseAll() {
	for i := range p.items {
		if p.active[i] {
			p.Release(newHandle(uint32(i), p.generations[i]))
		}
	}
}

// ForEach обходит активные объекты в порядке слотов.
// Освобождать текущий объект внутри fn можно; обход останавливается, если fn вернула false.
func (p *Pool[T]) ForEach(fn func(h Handle, item *T) bool) {
	for i := range p.items {
		if !p.active[i] {
			continue
		}
		if !fn(newHandle(uint32(i), p.generations[i]), p.items[i]) {
			return
		}
	}
}

// Capacity возвращает общее число слотов
func (p *Pool[T]) Capacity() int { return len(p.items) }

// ActiveCount возвращает число активных объектов
func (p *Pool[T]) ActiveCount() int { return p.activeCount }

// FreeCount возвращает размер свободного списка
func (p *Pool[T]) FreeCount() int { return len(p.free) }

// GetStats возвращает снимок счётчиков
func (p *Pool[T]) GetStats() Stats {
	s := p.stats
	s.Capacity = len(p.items)
	s.Active = p.activeCount
	s.Free = len(p.free)
	return s
}
