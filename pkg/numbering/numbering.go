package numbering

import (
	"fmt"

	"github.com/ShiraazMoollatjie/goluhn"
	"github.com/bwmarrin/snowflake"

	"github.com/GlebRadaev/wholesale/pkg/validate"
)

// Generator issues invoice numbers: a snowflake id followed by its Luhn check
// digit. Numbers from distinct node ids never collide.
type Generator struct {
	node *snowflake.Node
}

func New(nodeID int64) (*Generator, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("can't create snowflake node %d: %w", nodeID, err)
	}
	return &Generator{node: node}, nil
}

func (g *Generator) Next() string {
	id := g.node.Generate().String()
	_, number, err := goluhn.Calculate(id)
	if err != nil {
		// snowflake ids are always decimal digits
		return validate.InvoicePrefix + id
	}
	return validate.InvoicePrefix + number
}
