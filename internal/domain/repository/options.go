package repository

// FindOptions tunes a read. The zero value tracks results and applies
// deletion management.
type FindOptions struct {
	// ReadOnly results are not attached to the session identity map.
	ReadOnly bool
	// PreventDeletionManagement includes soft deleted rows.
	PreventDeletionManagement bool
}

// FindOption mutates FindOptions.
type FindOption func(*FindOptions)

// ReadOnly requests results that are not tracked by the session.
// Filtered deletes always track what they find and ignore it.
func ReadOnly() FindOption {
	return func(o *FindOptions) { o.ReadOnly = true }
}

// PreventDeletionManagement disables the soft delete visibility filter.
func PreventDeletionManagement() FindOption {
	return func(o *FindOptions) { o.PreventDeletionManagement = true }
}

// ApplyFindOptions folds opts into a FindOptions value.
func ApplyFindOptions(opts ...FindOption) FindOptions {
	var o FindOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
