package restore

import "restorable.io/restorectl/internal/model"

var brandIcons = map[string]string{
	model.StorageAmazon:  "s3-brand",
	model.StorageDOSpace: "digitalocean-brand",
}

// Providers whose backups are restored without a checksum pass.
var selfVerifyingStorage = map[string]bool{
	model.StorageLocal:    true,
	model.StorageSFTP:     true,
	model.StorageRunCloud: true,
}

// Branding maps storage display metadata onto the icon shown to the user.
func Branding(info *model.StorageInfo) StorageBranding {
	if info == nil {
		return StorageBranding{}
	}
	b := StorageBranding{Icon: info.Icon, Label: info.Label, Slug: info.Slug}
	if icon, ok := brandIcons[info.Slug]; ok {
		b.Icon = icon
	}
	return b
}

// NeedsVerification reports whether backups on the given storage must pass a
// checksum verification before they are restored.
func NeedsVerification(storage string) bool {
	return !selfVerifyingStorage[storage]
}
