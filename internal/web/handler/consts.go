package handler

// ErrNilACPFatalLogMsg is used if app, cfg or the provisioner is nil.
const ErrNilACPFatalLogMsg = "app, cfg or provisioner is nil"
