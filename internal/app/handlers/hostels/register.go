package hostels

import (
	"log/slog"

	"hostelfinder/internal/app/commands"
	"hostelfinder/internal/app/dto"
	"hostelfinder/internal/app/queries"
)

// Register binds every hostel command and query handler to its bus key.
func Register(cmdBus *commands.InMemoryBus, queryBus *queries.InMemoryBus, w Writer, logger *slog.Logger) {
	commands.RegisterHandler[CreateHostelCommand, *dto.HostelDetail](cmdBus, createHostelKey, &CreateHostelHandler{Writer: w})
	commands.RegisterHandler[UpdateHostelCommand, *dto.HostelDetail](cmdBus, updateHostelKey, &UpdateHostelHandler{Writer: w})
	commands.RegisterHandler[DeleteHostelCommand, struct{}](cmdBus, deleteHostelKey, &DeleteHostelHandler{Writer: w})

	queries.RegisterHandler[ListHostelsQuery, dto.HostelCatalog](queryBus, listHostelsKey, &ListHostelsHandler{UoWFactory: w.UoWFactory, Logger: logger})
	queries.RegisterHandler[GetHostelQuery, *dto.HostelDetail](queryBus, getHostelKey, &GetHostelHandler{UoWFactory: w.UoWFactory})
}
