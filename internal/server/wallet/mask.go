package wallet

// MaskAddress redacts a wallet address for callers outside the owning
// identity, keeping the 0x prefix plus the first four and last four hex
// characters. A presentation transform only; the stored value stays intact.
func MaskAddress(address string) string {
	if len(address) < 12 {
		return address
	}
	return address[:6] + "..." + address[len(address)-4:]
}
