package backup

// StorageKey describes one persisted store that backups cover. ItemPaths
// are gjson paths inside the stored value whose array lengths are summed
// for the inventory item count.
type StorageKey struct {
	Name        string
	DisplayName string
	ItemPaths   []string
}

var StorageKeys = []StorageKey{
	{Name: "customer-store", DisplayName: "顧客データ", ItemPaths: []string{"state.customers"}},
	{Name: "sales-target-storage", DisplayName: "販売目標", ItemPaths: []string{"state.targets"}},
	{Name: "showroom-storage", DisplayName: "展示車両", ItemPaths: []string{"state.newVehicles", "state.usedVehicles"}},
	{Name: "settings-storage", DisplayName: "設定"},
	{Name: "chat-storage", DisplayName: "チャット", ItemPaths: []string{"state.messages"}},
	{Name: "contact-storage", DisplayName: "連絡先", ItemPaths: []string{"state.contacts"}},
	{Name: "auth-storage", DisplayName: "認証情報", ItemPaths: []string{"state.users"}},
	{Name: "sidebar-order-storage", DisplayName: "サイドバー並び順"},
	{Name: "estimate-storage", DisplayName: "見積", ItemPaths: []string{"state.estimates"}},
	{Name: "contract-management-storage", DisplayName: "契約管理", ItemPaths: []string{"state.contracts"}},
	{Name: "user-permissions-storage", DisplayName: "ユーザー権限", ItemPaths: []string{"state.permissions"}},
	{Name: "survey-storage", DisplayName: "アンケート", ItemPaths: []string{"state.responses"}},
}

const (
	CustomerStoreKey = "customer-store"
	AuthStoreKey     = "auth-storage"
)

// IsStorageKey reports whether name is one of the whitelisted keys.
func IsStorageKey(name string) bool {
	_, ok := lookupKey(name)
	return ok
}

func lookupKey(name string) (StorageKey, bool) {
	for _, k := range StorageKeys {
		if k.Name == name {
			return k, true
		}
	}
	return StorageKey{}, false
}
