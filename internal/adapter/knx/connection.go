package knx

import (
	"fmt"
	"sync"

	"github.com/carlmjohnson/versioninfo"
)

// Connection tracks the state of the link to the KNX gateway. The bus
// traffic itself is handled outside this process; the bridge only keeps the
// address it was assigned.
type Connection struct {
	mu             sync.RWMutex
	version        string
	connectionType string
	gateway        string
	address        IndividualAddress
}

func NewConnection(individualAddress, connectionType, gatewayIP string, gatewayPort uint) (*Connection, error) {
	ia, err := ParseIndividualAddress(individualAddress)
	if err != nil {
		return nil, err
	}
	gateway := ""
	if gatewayIP != "" {
		if gatewayPort == 0 {
			gatewayPort = 3671
		}
		gateway = fmt.Sprintf("%s:%d", gatewayIP, gatewayPort)
	}
	return &Connection{
		version:        versioninfo.Short(),
		connectionType: connectionType,
		gateway:        gateway,
		address:        ia,
	}, nil
}

func (c *Connection) Version() string {
	return c.version
}

func (c *Connection) CurrentAddress() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.address.String()
}

// SetCurrentAddress records the address assigned by a tunneling gateway.
func (c *Connection) SetCurrentAddress(ia IndividualAddress) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.address = ia
}

func (c *Connection) ConnectionType() string {
	return c.connectionType
}

func (c *Connection) Gateway() string {
	return c.gateway
}
