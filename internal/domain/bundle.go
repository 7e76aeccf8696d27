package domain

// EntityRef is an opaque reference to an entity owned by or assigned to a user.
type EntityRef struct {
	ID string `json:"id"`
}

// Bundle is the full derived snapshot of what a user owns or is assigned to.
// It is rebuilt in full on every fetch and never patched.
type Bundle struct {
	ID               string      `json:"id"`
	Name             string      `json:"name"`
	Role             Role        `json:"role"`
	Accounts         []EntityRef `json:"accounts"`
	Projects         []EntityRef `json:"projects"`
	TasksAssigned    []EntityRef `json:"tasks_assigned"`
	TasksCreated     []EntityRef `json:"tasks_created"`
	Updates          []EntityRef `json:"updates"`
	DeliveryStatuses []EntityRef `json:"delivery_statuses"`
}

// IDLists holds the cached id lists derived from a Bundle.
type IDLists struct {
	Accounts         []string `json:"accounts"`
	Projects         []string `json:"projects"`
	TasksAssigned    []string `json:"tasks_assigned"`
	TasksCreated     []string `json:"tasks_created"`
	Updates          []string `json:"updates"`
	DeliveryStatuses []string `json:"delivery_statuses"`
}

// Profile is the user part of a Bundle.
type Profile struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role Role   `json:"role"`
}

// Profile returns the user part of the bundle.
func (b *Bundle) Profile() Profile {
	return Profile{ID: b.ID, Name: b.Name, Role: b.Role}
}

// IDLists flattens every reference list into plain ids.
// Missing lists become empty, never nil, so they serialize as [].
func (b *Bundle) IDLists() IDLists {
	return IDLists{
		Accounts:         refIDs(b.Accounts),
		Projects:         refIDs(b.Projects),
		TasksAssigned:    refIDs(b.TasksAssigned),
		TasksCreated:     refIDs(b.TasksCreated),
		Updates:          refIDs(b.Updates),
		DeliveryStatuses: refIDs(b.DeliveryStatuses),
	}
}

func refIDs(refs []EntityRef) []string {
	ids := make([]string, 0, len(refs))
	for _, r := range refs {
		ids = append(ids, r.ID)
	}
	return ids
}
