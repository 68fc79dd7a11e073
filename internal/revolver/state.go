package revolver

// State - барабан одного чата. Каждый элемент - камора, true означает патрон.
// Каморы снимаются с конца, уже отстрелянные в срезе не хранятся.
type State struct {
	chambers []bool
}

// newState заряжает барабан из n камор с патроном в каморе loaded.
func newState(n, loaded int) State {
	chambers := make([]bool, n)
	chambers[loaded] = true
	return State{chambers: chambers}
}

// Len - сколько камор осталось в текущем цикле.
func (s State) Len() int {
	return len(s.chambers)
}

// Empty - барабан пуст, нужна перезарядка.
func (s State) Empty() bool {
	return len(s.chambers) == 0
}

// Loaded возвращает число патронов среди оставшихся камор.
func (s State) Loaded() int {
	n := 0
	for _, c := range s.chambers {
		if c {
			n++
		}
	}
	return n
}

// pop снимает последнюю камору и сообщает, был ли в ней патрон.
func (s *State) pop() bool {
	last := len(s.chambers) - 1
	fate := s.chambers[last]
	s.chambers = s.chambers[:last]
	return fate
}

func (s State) clone() State {
	return State{chambers: append([]bool(nil), s.chambers...)}
}
