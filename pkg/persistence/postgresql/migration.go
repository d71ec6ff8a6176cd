package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE eca_models (
				id VARCHAR(255) PRIMARY KEY,
				document JSONB NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);
		`,
		2: `
			CREATE TABLE eca_tasks (
				seq BIGSERIAL PRIMARY KEY,
				id VARCHAR(255) NOT NULL,
				visible_at TIMESTAMP WITH TIME ZONE NOT NULL,
				payload JSONB NOT NULL
			);

			CREATE INDEX idx_eca_tasks_visible_at ON eca_tasks(visible_at, seq);
		`,
	}
}
