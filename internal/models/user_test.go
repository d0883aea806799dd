package models

import (
	"testing"
)

func TestIsValidRole(t *testing.T) {
	tests := []struct {
		name     string
		role     Role
		expected bool
	}{
		{"admin role", RoleAdmin, true},
		{"dispatcher role", RoleDispatcher, true},
		{"carrier role", RoleCarrier, true},
		{"viewer role", RoleViewer, true},
		{"invalid role", "invalid", false},
		{"empty role", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsValidRole(tt.role)
			if result != tt.expected {
				t.Errorf("IsValidRole(%s) = %v, want %v", tt.role, result, tt.expected)
			}
		})
	}
}

func TestUser_HasPermission(t *testing.T) {
	admin := &User{Role: RoleAdmin}
	dispatcher := &User{Role: RoleDispatcher}
	carrier := &User{Role: RoleCarrier}
	viewer := &User{Role: RoleViewer}

	tests := []struct {
		name     string
		user     *User
		action   string
		expected bool
	}{
		// Admin permissions - should have all permissions
		{"admin can delete user", admin, "delete_user", true},
		{"admin can manage users", admin, "manage_users", true},
		{"admin can announce segment", admin, "announce_segment", true},
		{"admin can assign segment", admin, "assign_segment", true},

		// Dispatcher permissions - everything except user management
		{"dispatcher cannot delete user", dispatcher, "delete_user", false},
		{"dispatcher cannot manage users", dispatcher, "manage_users", false},
		{"dispatcher can announce segment", dispatcher, "announce_segment", true},
		{"dispatcher can assign segment", dispatcher, "assign_segment", true},
		{"dispatcher can view board", dispatcher, "view_board", true},

		// Carrier permissions - offer workflow plus read views
		{"carrier can view board", carrier, "view_board", true},
		{"carrier can view segments", carrier, "view_segments", true},
		{"carrier can respond to announcement", carrier, "respond_announcement", true},
		{"carrier can view announcements", carrier, "view_announcements", true},
		{"carrier cannot announce segment", carrier, "announce_segment", false},
		{"carrier cannot assign segment", carrier, "assign_segment", false},

		// Viewer permissions - read-only access
		{"viewer can view board", viewer, "view_board", true},
		{"viewer can view segments", viewer, "view_segments", true},
		{"viewer can view shipments", viewer, "view_shipments", true},
		{"viewer cannot respond to announcement", viewer, "respond_announcement", false},
		{"viewer cannot assign segment", viewer, "assign_segment", false},
		{"viewer cannot delete user", viewer, "delete_user", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.user.HasPermission(tt.action)
			if result != tt.expected {
				t.Errorf("User with role %s HasPermission(%s) = %v, want %v",
					tt.user.Role, tt.action, result, tt.expected)
			}
		})
	}
}
