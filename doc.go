// Package tariff provides a hierarchical business settings and pricing
// resolution engine for Go applications.
//
// Tariff is designed as a library, not a service. Import it directly into
// your Go application. It provides:
//
//   - Scoped settings that resolve by specificity, priority and validity window
//   - Declarative pricing rules with conditions and an ordered action pipeline
//   - Atomic bulk pricing across many lines
//   - An append-only audit trail paired with every configuration write
//   - An injectable resolution cache (in-process or Redis)
//
// # Quick Start
//
// Create an engine with your preferred store:
//
//	import (
//	    "github.com/xraph/tariff"
//	    "github.com/xraph/tariff/store/postgres"
//	)
//
//	e := tariff.New(postgres.New(db))
//	if err := e.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer e.Stop()
//
// # Settings
//
// A setting is a keyed value with an optional scope. Unset scope fields
// match any request; set fields must equal the request exactly. The most
// specific matching setting wins, then the highest priority, then the
// newest ID:
//
//	err := e.CreateSetting(ctx, &setting.Setting{
//	    CategoryID: cat.ID,
//	    Key:        "refill.base_price",
//	    Value:      "1100",
//	    DataType:   setting.TypeNumber,
//	    Scope:      scope.Scope{OutletID: "lekki"},
//	}, "ops@example.com")
//
//	s, err := e.Resolve(ctx, "refill.base_price", scope.Context{OutletID: "lekki"})
//
// A resolution that finds nothing returns ErrNotFound. That is an outcome,
// not a failure; use IsNotFound to tell it apart.
//
// # Pricing
//
// Pricing rules select on scope and conditions and apply actions in order:
// setBase, applyPercentageFee, applyFlatFee and a final applyTax. The first
// matching rule in rank order wins. Conditions never add to a rule's rank.
// When no rule matches, "<operation>.base_price" is used as a fallback.
//
//	qty := int64(12)
//	res, err := e.Evaluate(ctx, "REFILL", tariff.PricingContext{
//	    CylinderType: "12.5kg",
//	    Quantity:     &qty,
//	})
//	fmt.Println(res.TotalAmount)
//
// All amounts are integer minor units. Percentages are applied with
// decimal arithmetic and rounded half away from zero.
//
// # Writes and audit
//
// Every create, update and delete is paired with an audit entry carrying
// the actor, the reason and before/after snapshots. If the audit entry
// cannot be written the data write is rolled back. Successful writes
// invalidate the resolution cache; read back in the same request with
// WithoutCache.
//
// # Seeding
//
// The seed package loads categories, settings and rules from a YAML
// catalogue and applies them through the same audited writes:
//
//	cat, err := seed.LoadFile("catalogue.yaml")
//	rep, err := seed.Apply(ctx, e, cat, "ops@example.com")
//
// # TypeID
//
// All entities use TypeID for globally unique, type-safe identifiers:
//
//	cat_01h2xcejqtf2nbrexx3vqjhp41   // Category ID
//	set_01h2xcejqtf2nbrexx3vqjhp41   // Setting ID
//	rule_01h455vb4pex5vsknk084sn02q  // Pricing rule ID
//
// TypeIDs are K-sortable, which gives the "newest ID wins" tie-break a
// natural time order.
package tariff
