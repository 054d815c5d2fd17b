// Package entities provides the core domain entities of the native call bridge.
// These are plain data types shared by the bridge logic, the wazero adapter and
// the platform loaders: type codes, call signatures, binding handles, bridge
// configuration and native capability grants.
package entities
