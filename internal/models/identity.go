package models

// GuestNickname показывается для соединений без проверенной личности
const GuestNickname = "GUEST"

// Identity — от чьего имени говорит соединение. ID nil или 0 — гость.
type Identity struct {
	ID          *int64
	Nickname    string
	IsCompleted bool
}

func GuestIdentity() Identity {
	return Identity{Nickname: GuestNickname, IsCompleted: true}
}

func (i Identity) IsGuest() bool {
	return i.ID == nil || *i.ID == 0
}

// UserID возвращает id или 0 для гостя
func (i Identity) UserID() int64 {
	if i.IsGuest() {
		return 0
	}
	return *i.ID
}
