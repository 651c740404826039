package inventory

// SlotListener is told the index of a slot whose content changed. It should
// re-read the slot rather than expect the new value.
type SlotListener func(index int)

type listener struct {
	id uint64
	fn SlotListener
}

// Subscribe registers fn for slot change notifications. Listeners run
// synchronously inside the mutating call, in subscription order, once per
// mutated slot in mutation order. The returned func removes the listener.
func (inv *Inventory) Subscribe(fn SlotListener) (cancel func()) {
	if fn == nil {
		return func() {}
	}
	inv.nextListener++
	id := inv.nextListener
	inv.listeners = append(inv.listeners, listener{id: id, fn: fn})
	return func() {
		for i, l := range inv.listeners {
			if l.id == id {
				inv.listeners = append(inv.listeners[:i:i], inv.listeners[i+1:]...)
				return
			}
		}
	}
}

func (inv *Inventory) notify(index int) {
	if inv.tx != nil {
		inv.tx.notifications = append(inv.tx.notifications, index)
		return
	}
	inv.deliver(index)
}

func (inv *Inventory) deliver(index int) {
	if len(inv.listeners) == 0 {
		return
	}
	current := append([]listener(nil), inv.listeners...)
	for _, l := range current {
		l.fn(index)
	}
}
