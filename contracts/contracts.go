package contracts

import _ "embed"

//go:embed inventory.yaml
var InventoryYAML []byte
