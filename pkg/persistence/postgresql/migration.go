package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE leads (
				id VARCHAR(255) PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				email VARCHAR(255),
				company VARCHAR(255),
				phone VARCHAR(50),
				status VARCHAR(50) NOT NULL DEFAULT 'new',
				channel VARCHAR(50),
				score INT NOT NULL DEFAULT 0,
				custom_fields JSONB,
				last_contacted_at TIMESTAMP WITH TIME ZONE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX idx_leads_status ON leads(status);
			CREATE INDEX idx_leads_email ON leads(email);

			CREATE TABLE personas (
				id VARCHAR(255) PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				tone VARCHAR(100),
				industry VARCHAR(100),
				description TEXT,
				system_prompt TEXT NOT NULL,
				message_count INT NOT NULL DEFAULT 0,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE TABLE workflows (
				id VARCHAR(255) PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				description TEXT,
				status VARCHAR(50) NOT NULL CHECK (status IN ('draft', 'active', 'paused')),
				persona_id VARCHAR(255) REFERENCES personas(id),
				execution_count INT NOT NULL DEFAULT 0,
				success_count INT NOT NULL DEFAULT 0,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX idx_workflows_status ON workflows(status);

			CREATE TABLE workflow_nodes (
				workflow_id VARCHAR(255) NOT NULL REFERENCES workflows(id) ON DELETE CASCADE,
				id VARCHAR(255) NOT NULL,
				node_type VARCHAR(50) NOT NULL,
				label VARCHAR(255),
				position_x INT NOT NULL DEFAULT 0,
				position_y INT NOT NULL DEFAULT 0,
				config JSONB DEFAULT '{}',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				PRIMARY KEY (workflow_id, id)
			);

			CREATE INDEX idx_workflow_nodes_workflow_id ON workflow_nodes(workflow_id);

			CREATE TABLE workflow_edges (
				workflow_id VARCHAR(255) NOT NULL REFERENCES workflows(id) ON DELETE CASCADE,
				id VARCHAR(255) NOT NULL,
				source_node_id VARCHAR(255) NOT NULL,
				target_node_id VARCHAR(255) NOT NULL,
				label VARCHAR(255),
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				PRIMARY KEY (workflow_id, id)
			);

			CREATE INDEX idx_workflow_edges_workflow_id ON workflow_edges(workflow_id);
			CREATE INDEX idx_workflow_edges_source ON workflow_edges(workflow_id, source_node_id);

			CREATE TABLE workflow_executions (
				id VARCHAR(255) PRIMARY KEY,
				workflow_id VARCHAR(255) NOT NULL REFERENCES workflows(id) ON DELETE CASCADE,
				lead_id VARCHAR(255) NOT NULL REFERENCES leads(id),
				status VARCHAR(50) NOT NULL CHECK (status IN ('pending', 'running', 'completed', 'failed', 'paused')),
				current_node_id VARCHAR(255),
				started_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				completed_at TIMESTAMP WITH TIME ZONE,
				error TEXT
			);

			CREATE INDEX idx_workflow_executions_workflow_id ON workflow_executions(workflow_id);
			CREATE INDEX idx_workflow_executions_status ON workflow_executions(status);

			CREATE TABLE messages (
				id VARCHAR(255) PRIMARY KEY,
				execution_id VARCHAR(255) NOT NULL,
				lead_id VARCHAR(255) NOT NULL REFERENCES leads(id),
				persona_id VARCHAR(255),
				channel VARCHAR(50) NOT NULL,
				content TEXT,
				status VARCHAR(50) NOT NULL DEFAULT 'pending',
				metadata JSONB,
				sent_at TIMESTAMP WITH TIME ZONE,
				delivered_at TIMESTAMP WITH TIME ZONE,
				opened_at TIMESTAMP WITH TIME ZONE,
				clicked_at TIMESTAMP WITH TIME ZONE,
				replied_at TIMESTAMP WITH TIME ZONE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX idx_messages_execution_id ON messages(execution_id);
			CREATE INDEX idx_messages_lead_id ON messages(lead_id);

			CREATE TABLE integration_settings (
				id VARCHAR(255) PRIMARY KEY,
				provider VARCHAR(100) NOT NULL UNIQUE,
				config JSONB DEFAULT '{}',
				is_active BOOLEAN NOT NULL DEFAULT false,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);
		`,
	}
}
