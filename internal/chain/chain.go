// Package chain names the blockchains and wallet connections a user can link.
package chain

// Chain identifies a blockchain network.
type Chain string

const (
	Arweave  Chain = "arweave"
	Ethereum Chain = "ethereum"
)

// Valid reports whether c is a supported chain.
func (c Chain) Valid() bool {
	switch c {
	case Arweave, Ethereum:
		return true
	}
	return false
}

// Connection identifies the wallet software (or custodial provider) used to
// connect a chain address.
type Connection string

const (
	ArConnect      Connection = "arconnect"
	MetaMask       Connection = "metamask"
	WalletConnect  Connection = "walletconnect"
	CoinbaseWallet Connection = "coinbasewallet"
	Magic          Connection = "magic"
)

// Valid reports whether c is a supported connection.
func (c Connection) Valid() bool {
	switch c {
	case ArConnect, MetaMask, WalletConnect, CoinbaseWallet, Magic:
		return true
	}
	return false
}
