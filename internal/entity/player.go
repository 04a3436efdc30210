package entity

// Player identifies a turn owner or a winner.
type Player string

const (
	PlayerUser    Player = "user"
	PlayerProgram Player = "program"
)

func (that Player) IsValid() bool {
	return that == PlayerUser || that == PlayerProgram
}

// PlayerPtr is a helper for the optional winner field.
func PlayerPtr(p Player) *Player {
	return &p
}
