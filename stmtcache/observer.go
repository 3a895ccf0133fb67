package stmtcache

// Observer is told about statement cache traffic. Implementations must be
// safe for concurrent use: every session in a pool reports to the same one.
type Observer interface {
	Hit(key string)
	Miss(key string)
	Evicted(key string)
}

// Observers fans events out to several observers.
type Observers []Observer

func (o Observers) Hit(key string) {
	for _, ob := range o {
		ob.Hit(key)
	}
}

func (o Observers) Miss(key string) {
	for _, ob := range o {
		ob.Miss(key)
	}
}

func (o Observers) Evicted(key string) {
	for _, ob := range o {
		ob.Evicted(key)
	}
}

type nopObserver struct{}

func (nopObserver) Hit(string)     {}
func (nopObserver) Miss(string)    {}
func (nopObserver) Evicted(string) {}
