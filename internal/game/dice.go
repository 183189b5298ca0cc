package game

import "math/rand"

// RollDice returns a uniform roll of a die with the given number of sides.
func RollDice(sides int) (int, error) {
	if sides < MinDiceSides || sides > MaxDiceSides {
		return 0, ErrInvalidSettings
	}
	return rand.Intn(sides) + 1, nil
}

// RandomStartPlayer picks a uniformly random non-eliminated player.
func (s *State) RandomStartPlayer() (int, error) {
	var alive []int
	for _, p := range s.Players {
		if !p.IsEliminated {
			alive = append(alive, p.ID)
		}
	}
	if len(alive) == 0 {
		return 0, ErrInvalidPlayerID
	}
	return alive[rand.Intn(len(alive))], nil
}

// RollPlayOrder returns a random permutation of all player ids.
func (s *State) RollPlayOrder() []int {
	order := make([]int, len(s.Players))
	for i, p := range s.Players {
		order[i] = p.ID
	}
	rand.Shuffle(len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})
	return order
}
