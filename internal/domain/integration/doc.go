// Package integration contains the Integration bounded context.
// This context describes how the service talks to the hosting commerce platform.
//
// Key concepts:
//   - CatalogPlatform: Port interface for reading and writing namespaced item attributes
//   - CredentialProvider: Port interface resolving the stored access credential of a shop
//   - NotificationVerifier: Port interface checking the authenticity of inbound notifications
//   - Topic: the item lifecycle notifications the service reacts to
//
// Design Pattern: Ports & Adapters
//   - Ports (interfaces) are defined here in the domain layer
//   - Adapters (implementations) are in the infrastructure layer
package integration
