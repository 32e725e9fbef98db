package models

// Member is a project participant. Members are identified by name; the
// weight drives proportional splitting (1 = a full share, 2 = double, ...).
type Member struct {
	Name   string
	Weight int64
}
