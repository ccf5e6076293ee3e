package v1

import "github.com/tinoosan/atmledger/internal/service/teller"

var _ Teller = (*teller.Service)(nil)
