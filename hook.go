package seqz

// Hook represents a handle to a registered handler.
// It provides a way to unregister the handler from its name.
//
// Unregistering does not affect triggers already in flight: each trigger
// runs against the handlers registered when it started.
//
// Example:
//
//	hook, err := hooks.Hook("order.save", handler)
//	if err != nil {
//	    return err
//	}
//
//	// Later, unregister the hook
//	if err := hook.Unhook(); err != nil {
//	    log.Printf("Failed to unhook: %v", err)
//	}
type Hook struct {
	// unhook performs the actual unregistration. It is cleared after the
	// first call.
	unhook func() error
}

// Unhook removes this hook from its name.
//
// Returns:
//   - nil: Hook successfully removed
//   - ErrAlreadyUnhooked: Hook was already unhooked or invalid
//   - ErrHookNotFound: Hook no longer exists (cleared or service closed)
func (h *Hook) Unhook() error {
	if h.unhook == nil {
		return ErrAlreadyUnhooked
	}
	err := h.unhook()
	h.unhook = nil
	return err
}
