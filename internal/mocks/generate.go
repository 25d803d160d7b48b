package mocks

//go:generate mockery --name EventStore --srcpkg github.com/aevon-lab/tenantflow/internal/core/storage --output ./storage --outpkg storagemocks --with-expecter
//go:generate mockery --name UnitOfWork --srcpkg github.com/aevon-lab/tenantflow/internal/core/storage --output ./storage --outpkg storagemocks --with-expecter
//go:generate mockery --name Store --srcpkg github.com/aevon-lab/tenantflow/internal/core/workflow --output ./workflow --outpkg workflowmocks --with-expecter
//go:generate mockery --name Notifier --srcpkg github.com/aevon-lab/tenantflow/internal/dispatch --output ./dispatch --outpkg dispatchmocks --with-expecter
//go:generate mockery --name Dispatcher --srcpkg github.com/aevon-lab/tenantflow/internal/ingestion --output ./ingestion --outpkg ingestionmocks --with-expecter
