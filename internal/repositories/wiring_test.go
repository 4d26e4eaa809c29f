package repositories

import "booking-backend/internal/services"

// The services package depends only on these interfaces; the concrete
// repositories must keep satisfying them.
var (
	_ services.LedgerStore    = (*LedgerRepository)(nil)
	_ services.UserStore      = (*UserRepository)(nil)
	_ services.SettingsStore  = (*SystemSettingRepository)(nil)
	_ services.SettingsReader = (*SystemSettingRepository)(nil)
)
