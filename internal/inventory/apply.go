package inventory

type transaction struct {
	notifications []int
	effects       []func()
	dirty         bool
}

// Apply runs mutate as one all-or-nothing change. Notifications, events and
// metrics produced inside mutate are held back. When mutate returns an error
// the slots are restored and everything held back is discarded. When it
// succeeds and the slots differ from before, the version advances once and
// the held notifications are delivered in order. Nested calls join the
// outermost transaction.
func (inv *Inventory) Apply(mutate func(*Inventory) error) error {
	if mutate == nil {
		return nil
	}
	if inv.tx != nil {
		return mutate(inv)
	}

	before := inv.Slots()
	tx := &transaction{}
	inv.tx = tx
	defer func() {
		if r := recover(); r != nil {
			inv.tx = nil
			inv.slots = before
			panic(r)
		}
	}()

	err := mutate(inv)
	inv.tx = nil

	if err != nil {
		inv.slots = before
		return err
	}
	if !tx.dirty || slotsEqual(before, inv.slots) {
		return nil
	}

	inv.version++
	for _, index := range tx.notifications {
		inv.deliver(index)
	}
	for _, fn := range tx.effects {
		fn()
	}
	return nil
}

func slotsEqual(a, b []Slot) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].equal(b[i]) {
			return false
		}
	}
	return true
}
