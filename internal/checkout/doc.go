// Package checkout reconciles the desired repository list against the tracked
// submodule checkouts and resolves every tracked checkout into the run's registry.
//
// Each checkout that is not yet registered walks
//
//	Tracked → Resolving → Registered
//	                    ↘ RollingBack → Untracked
//
// A checkout that cannot be resolved is removed again so the tracked set never
// keeps an entry that cannot be documented.
package checkout
