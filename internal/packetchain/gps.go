package packetchain

import "github.com/kismetwireless/kismet-sub014/internal/geo"

// GPSComponent holds a packet's GPS fix, attached at POST_CAPTURE by
// GPSHandler. Genuine GPS driver backends are out of scope (the core
// only specifies this component's shape); a configured geo.Provider
// fills in for one here.
var GPSComponent = RegisterComponent("packetchain.gps")

// GPSHandler stamps every packet with the current fix from provider. A
// nil provider (no GPS configured) makes this a no-op registration.
func GPSHandler(provider geo.Provider) Handler {
	return func(p *Packet) error {
		if provider == nil {
			return nil
		}
		loc := provider.GetLocation()
		p.Set(GPSComponent, loc)
		return nil
	}
}
