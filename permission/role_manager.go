package permission

import (
	"errors"
	"sync"
)

// RoleManager resolves role names to permission masks.
type RoleManager struct {
	registry *Registry

	mu     sync.RWMutex
	roles  map[string]Mask64
	frozen bool
}

// NewRoleManager returns an empty role manager over registry.
func NewRoleManager(registry *Registry) *RoleManager {
	return &RoleManager{
		registry: registry,
		roles:    make(map[string]Mask64),
	}
}

// RegisterRole binds roleName to the mask of the named permissions.
// With root set the role also carries the root bit.
func (rm *RoleManager) RegisterRole(roleName string, permissionNames []string, root bool) error {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.frozen {
		return errors.New("role manager frozen")
	}

	if roleName == "" {
		return errors.New("role name empty")
	}

	if _, exists := rm.roles[roleName]; exists {
		return errors.New("role already registered")
	}

	var mask Mask64
	for _, perm := range permissionNames {
		bit, ok := rm.registry.Bit(perm)
		if !ok {
			return errors.New("permission not registered: " + perm)
		}
		mask.Set(bit)
	}

	if root {
		bit, ok := rm.registry.RootBit()
		if !ok {
			return errors.New("root role requires a reserved root bit")
		}
		mask.Set(bit)
	}

	rm.roles[roleName] = mask
	return nil
}

// GetMask returns the mask of roleName. Unknown roles yield an empty mask
// and false.
func (rm *RoleManager) GetMask(roleName string) (Mask64, bool) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	mask, ok := rm.roles[roleName]
	return mask, ok
}

// Can reports whether roleName grants perm.
func (rm *RoleManager) Can(roleName, perm string) bool {
	mask, ok := rm.GetMask(roleName)
	if !ok {
		return false
	}
	return rm.MaskCan(mask, perm)
}

// MaskCan reports whether mask grants perm, honouring the root bit.
func (rm *RoleManager) MaskCan(mask Mask64, perm string) bool {
	bit, ok := rm.registry.Bit(perm)
	if !ok {
		return false
	}
	return mask.Has(bit, rm.registry.RootReserved())
}

// Permissions lists what roleName grants.
func (rm *RoleManager) Permissions(roleName string) []string {
	mask, ok := rm.GetMask(roleName)
	if !ok {
		return nil
	}
	return rm.registry.Names(mask)
}

// HasRole reports whether roleName is registered.
func (rm *RoleManager) HasRole(roleName string) bool {
	_, ok := rm.GetMask(roleName)
	return ok
}

// Freeze prevents further registrations.
func (rm *RoleManager) Freeze() {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.frozen = true
}

// Count returns the number of registered roles.
func (rm *RoleManager) Count() int {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return len(rm.roles)
}
