// Package pricing contains the Pricing bounded context.
// It derives sale, fee and market prices for handmade catalog items from
// per-item cost inputs and a sparse per-shop configuration.
//
// Key concepts:
//   - TenantConfiguration: optional pricing parameters owned by a shop
//   - ItemCostInputs: material cost, hours worked and rarity read from an item
//   - DerivedPricing: the computed attributes written back to the item
//
// Everything in this package is free of I/O. The ConfigurationRepository port
// is implemented in the infrastructure layer.
package pricing
