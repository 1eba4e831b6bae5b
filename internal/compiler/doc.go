// Package compiler turns CUE mapping documents into mapping.Schema values.
// A document declares entities under the "entity" field:
//
//	entity: order: {
//	    table: "orders"
//	    id:    "id"
//	    columns: {id: "id", customer: "customer"}
//	    relations: {
//	        items: {kind: "list", target: "item", foreignKey: "order_id", keyColumn: "idx"}
//	    }
//	}
//
// Compilation uses the CUE Go API directly (no CLI subprocess) and reports
// errors with source positions. Structural validation beyond field shapes
// (unknown targets, cycles, missing keys) is mapping.NewSchema's job; the
// compiler surfaces those errors unchanged.
package compiler
