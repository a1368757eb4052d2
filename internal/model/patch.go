package model

// Opt is one field of a partial patch. The zero value is absent and is left out of the
// request, Null sends an explicit JSON null, Set sends a value.
type Opt[T any] struct {
	set   bool
	null  bool
	value T
}

func Set[T any](v T) Opt[T] {
	return Opt[T]{set: true, value: v}
}

func Null[T any]() Opt[T] {
	return Opt[T]{set: true, null: true}
}

func (o Opt[T]) IsSet() bool {
	return o.set
}

func (o Opt[T]) IsNull() bool {
	return o.set && o.null
}

func (o Opt[T]) Value() (T, bool) {
	return o.value, o.set && !o.null
}

func (o Opt[T]) put(input map[string]any, key string) {
	if !o.set {
		return
	}
	if o.null {
		input[key] = nil
		return
	}
	input[key] = o.value
}

type MemberPatch struct {
	Nickname    Opt[string]
	Username    Opt[string]
	Status      Opt[ActivityStatus]
	AdminAccess Opt[bool]
	Flags       Opt[[]string]
	LastAct     Opt[LastActivity]
	IdleStats   Opt[IdleStats]
}

// Input returns only the fields that were set, keyed by their remote names.
func (p MemberPatch) Input() map[string]any {
	input := make(map[string]any)
	p.Nickname.put(input, "nickname")
	p.Username.put(input, "username")
	p.Status.put(input, "status")
	p.AdminAccess.put(input, "adminAccess")
	p.Flags.put(input, "flags")
	p.LastAct.put(input, "lastAct")
	p.IdleStats.put(input, "idleStats")
	return input
}

type GuildPatch struct {
	Name      Opt[string]
	Status    Opt[ActivityStatus]
	Settings  Opt[GuildSettings]
	LastAct   Opt[LastActivity]
	IdleStats Opt[IdleStats]
}

func (p GuildPatch) Input() map[string]any {
	input := make(map[string]any)
	p.Name.put(input, "name")
	p.Status.put(input, "status")
	p.Settings.put(input, "settings")
	p.LastAct.put(input, "lastAct")
	p.IdleStats.put(input, "idleStats")
	return input
}
