package thread

// Init performs the one-time setup spec.md §4.3 describes ("state[0] =
// RUNNING... running_tid = 0"). It is equivalent to forcing creation of
// the package's default Runtime; calling it more than once is harmless.
func Init() {
	Default()
}

// Id returns the TID of the currently running thread on the default Runtime.
func Id() Tid {
	return Default().Id()
}

// Create spawns a new thread on the default Runtime running fn(arg) and
// returns its TID.
func Create(fn func(arg any), arg any) (Tid, error) {
	return Default().Create(fn, arg)
}

// Yield switches away from the running thread on the default Runtime.
func Yield(want Tid) (Tid, error) {
	return Default().Yield(want)
}

// Exit marks the running thread EXITED on the default Runtime and never returns.
func Exit() {
	Default().Exit()
}

// Kill marks tid KILLED on the default Runtime.
func Kill(tid Tid) (Tid, error) {
	return Default().Kill(tid)
}
