// Package main provides the entry point of scim-bridge.
// It runs a SCIM 2.0 endpoint on the Fiber framework that receives user
// provisioning requests from an identity provider and turns them into
// identity and group documents of a configuration-as-code repository.
// Changes are proposed as GitHub pull requests; a journal of every
// provisioning event is kept with gorm.
package main
